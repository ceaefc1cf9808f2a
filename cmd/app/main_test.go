package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/atvirokodosprendimai/regform/internal/core/domain"
)

var today = time.Date(2025, time.June, 15, 0, 0, 0, 0, time.Local)

func TestPrintResultAccepted(t *testing.T) {
	result := domain.RegistrationInput{
		FullName:      "Jane Doe",
		Email:         "jane@doe.com",
		Phone:         "+358401234567",
		BirthDate:     "2000-01-01",
		TermsAccepted: true,
	}.Validate(today)

	var buf bytes.Buffer
	require.NoError(t, printResult(&buf, result, false))
	assert.Equal(t, "Accepted\n", buf.String())
}

func TestPrintResultListsErrorsInFormOrder(t *testing.T) {
	result := domain.RegistrationInput{BirthDate: "2030-01-01"}.Validate(today)

	var buf bytes.Buffer
	require.NoError(t, printResult(&buf, result, false))
	assert.Equal(t, ""+
		"fullName: Full name is required.\n"+
		"email: Please enter a valid email address.\n"+
		"phone: Please enter a valid Finnish phone number, e.g., +358 40 123 4567.\n"+
		"birthDate: Birth date cannot be in the future.\n"+
		"termsAccepted: You must accept the terms and conditions to submit.\n",
		buf.String())
}

func TestPrintResultJSON(t *testing.T) {
	result := domain.RegistrationInput{
		FullName:      "Jane Doe",
		Email:         "jane@doe.com",
		Phone:         "+358401234567",
		BirthDate:     "2015-01-01",
		TermsAccepted: true,
	}.Validate(today)

	var buf bytes.Buffer
	require.NoError(t, printResult(&buf, result, true))

	var out resultOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.False(t, out.Valid)
	assert.Equal(t, map[string]string{"birthDate": "You must be at least 13 years old."}, out.FieldErrors)
	assert.Equal(t, map[string]string{"birthDate": "BIRTH_DATE_TOO_YOUNG"}, out.Codes)
}

func TestParseToday(t *testing.T) {
	fixed := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

	got, err := parseToday("", func() time.Time { return fixed })
	require.NoError(t, err)
	assert.Equal(t, fixed, got)

	got, err = parseToday("2025-06-15", nil)
	require.NoError(t, err)
	assert.True(t, got.Equal(today))

	_, err = parseToday("15.06.2025", nil)
	assert.Error(t, err)
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	cmd := newCommand()
	cmd.Writer = &buf
	cmd.ExitErrHandler = func(context.Context, *cli.Command, error) {}
	err := cmd.Run(context.Background(), append([]string{"regform"}, args...))
	return buf.String(), err
}

func TestValidateCommandExitCode(t *testing.T) {
	out, err := runCommand(t, "validate",
		"--full-name", "Jane Doe",
		"--email", "jane@doe.com",
		"--phone", "+358 40 123 4567",
		"--birth-date", "2000-01-01",
		"--terms",
		"--today", "2025-06-15",
	)
	require.NoError(t, err)
	assert.Equal(t, "Accepted\n", out)

	out, err = runCommand(t, "validate", "--full-name", "Jane", "--today", "2025-06-15")
	var exit cli.ExitCoder
	require.True(t, errors.As(err, &exit), "invalid input exits non-zero")
	assert.Equal(t, 1, exit.ExitCode())
	assert.Contains(t, out, "fullName: Enter your full name (first and last).")
}

func TestServeCommandRejectsBadTrustedProxy(t *testing.T) {
	_, err := runCommand(t, "serve", "--addr", "127.0.0.1:0", "--trusted-proxies", "not-an-ip")
	assert.ErrorContains(t, err, "trusted proxy")
}
