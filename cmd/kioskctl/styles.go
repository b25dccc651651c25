package main

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))

	appliedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	notAppliedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	unverifiableStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	declinedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
)
