// cmd/tokensale/style.go
package main

import "github.com/charmbracelet/lipgloss"

// Цветовая палитра терминального вывода
var (
	Cyan   = lipgloss.Color("#00E5FF") // заголовки
	Yellow = lipgloss.Color("#FFB500") // ожидающие подписи
	Green  = lipgloss.Color("#2AFFAA") // валидные подписи
	Red    = lipgloss.Color("#FF5555") // ошибки
	Base01 = lipgloss.Color("#6C7280") // приглушённый текст
	Base2  = lipgloss.Color("#ECEFF4") // основной текст
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(Cyan)
	labelStyle = lipgloss.NewStyle().Foreground(Base01).Width(16)
	valueStyle = lipgloss.NewStyle().Foreground(Base2)
	okStyle    = lipgloss.NewStyle().Foreground(Green)
	warnStyle  = lipgloss.NewStyle().Foreground(Yellow)
	errStyle   = lipgloss.NewStyle().Foreground(Red).Bold(true)
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Base01).
			Padding(0, 1)
)

func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), valueStyle.Render(value))
}
