package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/redmonkez12/viziopath-api/internal/account"
	"github.com/redmonkez12/viziopath-api/internal/admin"
)

// RunUserForm asks for the fields of u that are still empty.
func RunUserForm(u *admin.NewUser) error {
	var fields []huh.Field

	if strings.TrimSpace(u.Name) == "" {
		fields = append(fields, huh.NewInput().
			Title("Name").
			Placeholder("Jane Doe").
			Value(&u.Name).
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return admin.ErrNameRequired
				}
				return nil
			}))
	}

	if strings.TrimSpace(u.Email) == "" {
		fields = append(fields, huh.NewInput().
			Title("Email").
			Placeholder("jane@example.com").
			Value(&u.Email).
			Validate(func(s string) error {
				if !strings.Contains(s, "@") {
					return admin.ErrInvalidEmail
				}
				return nil
			}))
	}

	if u.Password == "" {
		fields = append(fields, huh.NewInput().
			Title("Password").
			EchoMode(huh.EchoModePassword).
			Value(&u.Password).
			Validate(func(s string) error {
				if len(s) < 6 {
					return admin.ErrPasswordTooWeak
				}
				return nil
			}))
	}

	if u.Role == "" {
		role := string(account.RoleUser)
		fields = append(fields, huh.NewSelect[string]().
			Title("Role").
			Options(
				huh.NewOption("User", string(account.RoleUser)),
				huh.NewOption("Moderator", string(account.RoleModerator)),
				huh.NewOption("Admin", string(account.RoleAdmin)),
			).
			Value(&role))
		defer func() { u.Role = account.Role(role) }()
	}

	if len(fields) == 0 {
		return nil
	}

	return huh.NewForm(huh.NewGroup(fields...)).WithTheme(huh.ThemeCatppuccin()).Run()
}

// PrintUser prints a created account.
func PrintUser(acc *account.Account) {
	fmt.Println(successStyle.Render("Account created"))
	fmt.Printf("  ID:    %s\n", acc.ID)
	fmt.Printf("  Name:  %s\n", acc.Name)
	fmt.Printf("  Email: %s\n", acc.Email)
	fmt.Printf("  Role:  %s\n", acc.Role)
	fmt.Println()
}

// PrintSeedReport lists what a seed run inserted.
func PrintSeedReport(report *admin.SeedReport) {
	fmt.Println(titleStyle.Render("Seed data"))
	for _, addr := range report.Created {
		fmt.Printf("  + %s\n", addr)
	}
	for _, addr := range report.Skipped {
		fmt.Println(subtleStyle.Render("  = " + addr + " (already exists)"))
	}
	fmt.Println()
	fmt.Println(successStyle.Render(fmt.Sprintf("%d created, %d skipped", len(report.Created), len(report.Skipped))))
}

// PrintSuccess prints a one-line confirmation.
func PrintSuccess(msg string) {
	fmt.Println(successStyle.Render(msg))
}

// PrintError prints an error message.
func PrintError(msg string) {
	fmt.Println(errorStyle.Render("Error: " + msg))
}
