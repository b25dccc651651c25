package catalog

// Default returns the built-in kiosk setting catalog. Every apply and
// restore command sets an absolute value, never a relative one, so the
// generated scripts stay idempotent.
func Default() *Catalog {
	return MustNew([]Definition{
		{
			ID:          "disable-system-sleep",
			DisplayName: "Disable system sleep",
			Description: "Prevents the machine, display and disks from ever sleeping.",
			Category:    CategoryPower,
			Required:    true,
			Apply:       "sudo pmset -a sleep 0 displaysleep 0 disksleep 0",
			Verify: CommandCheck{
				Command: "pmset -g | awk '/^ sleep/ {print $2; exit}'",
				Applied: OutputIs("0"),
				Unset:   AnyOf(OutputDiffers("0"), CheckFails()),
			},
			Restore: RestoreCommand{Command: "sudo pmset -a sleep 10 displaysleep 10 disksleep 10"},
		},
		{
			ID:          "disable-screensaver",
			DisplayName: "Disable screensaver",
			Description: "Sets the screensaver idle time to zero so it never starts.",
			Category:    CategoryPower,
			Required:    true,
			Apply:       "defaults -currentHost write com.apple.screensaver idleTime -int 0",
			Verify: CommandCheck{
				Command: "defaults -currentHost read com.apple.screensaver idleTime",
				Applied: OutputIs("0"),
				Unset:   AnyOf(OutputDiffers("0"), CheckFails()),
			},
			Restore: RestoreCommand{Command: "defaults -currentHost write com.apple.screensaver idleTime -int 1200"},
		},
		{
			ID:          "disable-power-nap",
			DisplayName: "Disable Power Nap",
			Description: "Stops background wake-ups for network and backup activity.",
			Category:    CategoryPower,
			Apply:       "sudo pmset -a powernap 0",
			Verify: CommandCheck{
				Command: "pmset -g | awk '/powernap/ {print $2; exit}'",
				Applied: OutputIs("0"),
				Unset:   AnyOf(OutputDiffers("0"), CheckFails()),
			},
			Restore: RestoreCommand{Command: "sudo pmset -a powernap 1"},
		},
		{
			ID:          "hide-dock",
			DisplayName: "Auto-hide the Dock",
			Description: "Keeps the Dock off-screen unless the pointer reaches the edge.",
			Category:    CategoryUI,
			Apply:       "defaults write com.apple.dock autohide -bool true && killall Dock",
			Verify: CommandCheck{
				Command: "defaults read com.apple.dock autohide",
				Applied: OutputIs("1"),
				Unset:   AnyOf(OutputDiffers("1"), CheckFails()),
			},
			Restore: RestoreCommand{Command: "defaults write com.apple.dock autohide -bool false && killall Dock"},
		},
		{
			ID:          "hide-menu-bar",
			DisplayName: "Auto-hide the menu bar",
			Description: "Hides the menu bar so full-screen content owns the display.",
			Category:    CategoryUI,
			Apply:       "defaults write NSGlobalDomain _HIHideMenuBar -bool true && killall Finder",
			Verify: CommandCheck{
				Command: "defaults read NSGlobalDomain _HIHideMenuBar",
				Applied: OutputIs("1"),
				Unset:   AnyOf(OutputDiffers("1"), CheckFails()),
			},
			Restore: RestoreCommand{Command: "defaults write NSGlobalDomain _HIHideMenuBar -bool false && killall Finder"},
		},
		{
			ID:          "hide-desktop-icons",
			DisplayName: "Hide desktop icons",
			Description: "Stops Finder from drawing icons on the desktop.",
			Category:    CategoryUI,
			Apply:       "defaults write com.apple.finder CreateDesktop -bool false && killall Finder",
			Verify: CommandCheck{
				Command: "defaults read com.apple.finder CreateDesktop",
				Applied: OutputIs("0"),
				Unset:   AnyOf(OutputDiffers("0"), CheckFails()),
			},
			Restore: RestoreCommand{Command: "defaults write com.apple.finder CreateDesktop -bool true && killall Finder"},
		},
		{
			ID:          "reset-launchpad",
			DisplayName: "Reset Launchpad layout",
			Description: "Clears custom Launchpad arrangements back to the stock layout.",
			Category:    CategoryUI,
			Apply:       "defaults write com.apple.dock ResetLaunchPad -bool true && killall Dock",
			// The flag is consumed when Dock restarts, so there is no state
			// left to query afterwards.
			Verify:  Unverifiable{Reason: "reset flag is consumed on Dock restart"},
			Restore: NotRestorable{},
		},
		{
			ID:          "disable-spotlight-indexing",
			DisplayName: "Disable Spotlight indexing",
			Description: "Turns off metadata indexing on all volumes.",
			Category:    CategoryPerformance,
			Apply:       "sudo mdutil -a -i off",
			Verify: CommandCheck{
				Command: "mdutil -s / | grep -c 'Indexing disabled'",
				Applied: OutputIs("1"),
				Unset:   AnyOf(OutputIs("0"), CheckFails()),
			},
			Restore: RestoreCommand{Command: "sudo mdutil -a -i on"},
		},
		{
			ID:          "disable-app-nap",
			DisplayName: "Disable App Nap",
			Description: "Prevents macOS from throttling occluded applications.",
			Category:    CategoryPerformance,
			Apply:       "defaults write NSGlobalDomain NSAppSleepDisabled -bool true",
			Verify: CommandCheck{
				Command: "defaults read NSGlobalDomain NSAppSleepDisabled",
				Applied: OutputIs("1"),
				Unset:   AnyOf(OutputDiffers("1"), CheckFails()),
			},
			Restore: RestoreCommand{Command: "defaults write NSGlobalDomain NSAppSleepDisabled -bool false"},
		},
		{
			ID:          "disable-bluetooth",
			DisplayName: "Disable Bluetooth",
			Description: "Powers off the Bluetooth controller to block pairing with the kiosk.",
			Category:    CategoryNetwork,
			Apply:       "sudo defaults write /Library/Preferences/com.apple.Bluetooth ControllerPowerState -int 0 && sudo killall -HUP bluetoothd",
			Verify: CommandCheck{
				Command: "defaults read /Library/Preferences/com.apple.Bluetooth ControllerPowerState",
				Applied: OutputIs("0"),
				Unset:   AnyOf(OutputDiffers("0"), CheckFails()),
			},
			Restore: RestoreCommand{Command: "sudo defaults write /Library/Preferences/com.apple.Bluetooth ControllerPowerState -int 1 && sudo killall -HUP bluetoothd"},
		},
		{
			ID:          "disable-captive-portal",
			DisplayName: "Disable captive portal assistant",
			Description: "Stops the captive network pop-up from appearing over kiosk content.",
			Category:    CategoryNetwork,
			Apply:       "sudo defaults write /Library/Preferences/SystemConfiguration/com.apple.captive.control Active -bool false",
			Verify: CommandCheck{
				Command: "defaults read /Library/Preferences/SystemConfiguration/com.apple.captive.control Active",
				Applied: OutputIs("0"),
				Unset:   AnyOf(OutputDiffers("0"), CheckFails()),
			},
			Restore: RestoreCommand{Command: "sudo defaults write /Library/Preferences/SystemConfiguration/com.apple.captive.control Active -bool true"},
		},
		{
			ID:          "enable-auto-login",
			DisplayName: "Enable automatic login",
			Description: "Logs the kiosk user in automatically after boot.",
			Category:    CategorySecurity,
			Required:    true,
			Apply:       "sudo defaults write /Library/Preferences/com.apple.loginwindow autoLoginUser -string kiosk",
			Verify: CommandCheck{
				Command: "defaults read /Library/Preferences/com.apple.loginwindow autoLoginUser",
				Applied: OutputIs("kiosk"),
				Unset:   AnyOf(OutputDiffers("kiosk"), CheckFails()),
			},
			Restore: RestoreCommand{Command: "sudo defaults delete /Library/Preferences/com.apple.loginwindow autoLoginUser"},
		},
		{
			ID:          "disable-screen-lock-password",
			DisplayName: "Disable wake password",
			Description: "Removes the password prompt after the display wakes.",
			Category:    CategorySecurity,
			Required:    true,
			Apply:       "defaults write com.apple.screensaver askForPassword -int 0",
			Verify: CommandCheck{
				Command: "defaults read com.apple.screensaver askForPassword",
				Applied: OutputIs("0"),
				Unset:   AnyOf(OutputDiffers("0"), CheckFails()),
			},
			Restore: RestoreCommand{Command: "defaults write com.apple.screensaver askForPassword -int 1"},
		},
		{
			ID:          "disable-software-update",
			DisplayName: "Disable automatic software updates",
			Description: "Stops update checks so reboots never interrupt the kiosk.",
			Category:    CategorySecurity,
			Apply:       "sudo softwareupdate --schedule off",
			Verify: CommandCheck{
				Command: "softwareupdate --schedule",
				Applied: OutputContains("off"),
				Unset:   OutputContains("on"),
			},
			Restore: RestoreCommand{Command: "sudo softwareupdate --schedule on"},
		},
		{
			ID:          "restart-on-freeze",
			DisplayName: "Restart automatically on freeze",
			Description: "Reboots the machine if the OS stops responding.",
			Category:    CategoryGeneral,
			Apply:       "sudo systemsetup -setrestartfreeze on",
			// systemsetup needs root even to read, so this entry is only
			// verifiable while an elevation session is active.
			Verify: CommandCheck{
				Command: "sudo systemsetup -getrestartfreeze",
				Applied: OutputContains("On"),
				Unset:   OutputContains("Off"),
			},
			Restore: RestoreCommand{Command: "sudo systemsetup -setrestartfreeze off"},
		},
		{
			ID:          "disable-crash-reporter-dialog",
			DisplayName: "Silence crash reporter",
			Description: "Suppresses the crash report dialog over kiosk content.",
			Category:    CategoryGeneral,
			Apply:       "defaults write com.apple.CrashReporter DialogType -string none",
			Verify: CommandCheck{
				Command: "defaults read com.apple.CrashReporter DialogType",
				Applied: OutputIs("none"),
				Unset:   AnyOf(OutputDiffers("none"), CheckFails()),
			},
			Restore: RestoreCommand{Command: "defaults write com.apple.CrashReporter DialogType -string crashreport"},
		},
		{
			ID:          "mute-startup-chime",
			DisplayName: "Mute the startup chime",
			Description: "Silences the boot sound on power-up.",
			Category:    CategoryGeneral,
			Apply:       "sudo nvram SystemAudioVolume=%80",
			Verify:      Unverifiable{Reason: "nvram value encoding varies by hardware"},
			Restore:     RestoreCommand{Command: "sudo nvram -d SystemAudioVolume"},
		},
	})
}
