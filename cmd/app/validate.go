package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/atvirokodosprendimai/regform/internal/core/domain"
)

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Validate one registration and print each field error",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "full-name", Usage: "Full name, first and last"},
			&cli.StringFlag{Name: "email", Usage: "Email address"},
			&cli.StringFlag{Name: "phone", Usage: "Finnish phone number, e.g. +358 40 123 4567"},
			&cli.StringFlag{Name: "birth-date", Usage: "Birth date as yyyy-mm-dd"},
			&cli.BoolFlag{Name: "terms", Usage: "Accept the terms and conditions"},
			&cli.StringFlag{Name: "today", Usage: "Validate as of this yyyy-mm-dd date instead of the current one"},
			&cli.BoolFlag{Name: "json", Usage: "Print the result as JSON"},
		},
		Action: func(_ context.Context, c *cli.Command) error {
			today, err := parseToday(c.String("today"), time.Now)
			if err != nil {
				return err
			}

			input := domain.RegistrationInput{
				FullName:      c.String("full-name"),
				Email:         c.String("email"),
				Phone:         c.String("phone"),
				BirthDate:     c.String("birth-date"),
				TermsAccepted: c.Bool("terms"),
			}
			result := input.Validate(today)

			if err := printResult(c.Root().Writer, result, c.Bool("json")); err != nil {
				return err
			}
			if !result.Valid {
				return cli.Exit("", 1)
			}
			return nil
		},
	}
}

func parseToday(raw string, now func() time.Time) (time.Time, error) {
	if raw == "" {
		return now(), nil
	}
	today, err := time.ParseInLocation(domain.DateLayout, raw, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("--today: want yyyy-mm-dd: %w", err)
	}
	return today, nil
}

type resultOutput struct {
	Valid       bool              `json:"valid"`
	FieldErrors map[string]string `json:"field_errors"`
	Codes       map[string]string `json:"codes"`
}

// printResult writes one "field: message" line per failure in form order,
// or "Accepted" when every field passed.
func printResult(w io.Writer, result domain.ValidationResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resultOutput{
			Valid:       result.Valid,
			FieldErrors: result.Messages(),
			Codes:       result.Codes(),
		})
	}

	if result.Valid {
		_, err := fmt.Fprintln(w, domain.StatusAccepted)
		return err
	}
	for _, kind := range result.Kinds() {
		if _, err := fmt.Fprintf(w, "%s: %s\n", kind.Field(), kind.Message()); err != nil {
			return err
		}
	}
	return nil
}
