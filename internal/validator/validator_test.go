package validator_test

import (
	"fmt"
	"strings"
	"testing"

	"chatgraph-backend/internal/validator"
)

func TestEmail(t *testing.T) {
	tests := []struct {
		name          string
		email         string
		expectedError error
	}{
		// valid cases
		{
			name:          "Valid: Standard email",
			email:         "user@gmail.com",
			expectedError: nil,
		},
		{
			name:          "Valid: Email with plus sign in local part",
			email:         "user+tag@yahoo.co.uk",
			expectedError: nil,
		},
		{
			name:          "Valid: Email with underscore and dot in local part",
			email:         "first.last_name@yahoo.co.uk",
			expectedError: nil,
		},

		// too long
		{
			name:          "Error: Too long (67 characters)",
			email:         "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa@web.de",
			expectedError: fmt.Errorf("long_email"),
		},

		// bad format
		{
			name:          "Error: Missing @ sign",
			email:         "userexample.com",
			expectedError: fmt.Errorf("bad_format"),
		},
		{
			name:          "Error: Missing domain part",
			email:         "user@",
			expectedError: fmt.Errorf("bad_format"),
		},
		{
			name:          "Error: Missing TLD",
			email:         "user@domain",
			expectedError: fmt.Errorf("bad_format"),
		},
		{
			name:          "Error: Local part starting with dot",
			email:         ".user@example.com",
			expectedError: fmt.Errorf("bad_format"),
		},
		{
			name:          "Error: TLD too short (1 character)",
			email:         "user@example.c",
			expectedError: fmt.Errorf("bad_format"),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			checkValidation(t, "Email", tc.email, validator.Email(tc.email), tc.expectedError)
		})
	}
}

func TestPassword(t *testing.T) {
	tests := []struct {
		name          string
		password      string
		expectedError error
	}{
		{
			name:          "Valid Password: Minimum Length",
			password:      "aA1bB2",
			expectedError: nil,
		},
		{
			name:          "Valid Password: Mixed Case and Symbols",
			password:      "P@sswOrd123!",
			expectedError: nil,
		},

		{
			name:          "Error: Password Too Short",
			password:      "aA1",
			expectedError: fmt.Errorf("short_password"),
		},
		{
			name:          "Error: Password Too Long",
			password:      "aBc123456789012345678901234567890123",
			expectedError: fmt.Errorf("long_password"),
		},
		{
			name:          "Error: Missing Lowercase Character",
			password:      "AABBCC1234",
			expectedError: fmt.Errorf("no_lowercase"),
		},
		{
			name:          "Error: Missing Uppercase Character",
			password:      "aabbcc1234",
			expectedError: fmt.Errorf("no_uppercase"),
		},
		{
			name:          "Error: Missing Number",
			password:      "PasswordABC",
			expectedError: fmt.Errorf("no_number"),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			checkValidation(t, "Password", tc.password, validator.Password(tc.password), tc.expectedError)
		})
	}
}

func TestUsername(t *testing.T) {
	tests := []struct {
		name          string
		username      string
		expectedError error
	}{
		{
			name:          "Valid: Simple username",
			username:      "alice",
			expectedError: nil,
		},
		{
			name:          "Valid: Underscores and digits",
			username:      "alice_42",
			expectedError: nil,
		},

		{
			name:          "Error: Too short",
			username:      "ab",
			expectedError: fmt.Errorf("short_username"),
		},
		{
			name:          "Error: Too long",
			username:      strings.Repeat("a", 33),
			expectedError: fmt.Errorf("long_username"),
		},
		{
			name:          "Error: Contains space",
			username:      "alice smith",
			expectedError: fmt.Errorf("bad_format"),
		},
		{
			name:          "Error: Contains special character",
			username:      "alice!",
			expectedError: fmt.Errorf("bad_format"),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			checkValidation(t, "Username", tc.username, validator.Username(tc.username), tc.expectedError)
		})
	}
}

func TestNamesAndContent(t *testing.T) {
	if err := validator.ServerName("My server"); err != nil {
		t.Errorf("ServerName failed unexpectedly: %v", err)
	}
	if err := validator.ServerName("   "); err == nil || err.Error() != "empty_name" {
		t.Errorf("ServerName(blank) got %v, want empty_name", err)
	}
	if err := validator.ServerName(strings.Repeat("x", 65)); err == nil || err.Error() != "long_name" {
		t.Errorf("ServerName(long) got %v, want long_name", err)
	}

	if err := validator.ChannelName("general"); err != nil {
		t.Errorf("ChannelName failed unexpectedly: %v", err)
	}
	if err := validator.ChannelName(strings.Repeat("x", 33)); err == nil || err.Error() != "long_name" {
		t.Errorf("ChannelName(long) got %v, want long_name", err)
	}

	if err := validator.MessageContent("hello"); err != nil {
		t.Errorf("MessageContent failed unexpectedly: %v", err)
	}
	if err := validator.MessageContent(" "); err == nil || err.Error() != "empty_message" {
		t.Errorf("MessageContent(blank) got %v, want empty_message", err)
	}
	if err := validator.MessageContent(strings.Repeat("x", 2001)); err == nil || err.Error() != "long_message" {
		t.Errorf("MessageContent(long) got %v, want long_message", err)
	}
}

func checkValidation(t *testing.T, fn string, input string, err error, expected error) {
	t.Helper()

	if expected == nil {
		if err != nil {
			t.Errorf("%s(%q) failed unexpectedly: got error %v, want nil", fn, input, err)
		}
		return
	}

	if err == nil {
		t.Errorf("%s(%q) passed unexpectedly: got nil, want error %v", fn, input, expected)
		return
	}

	if err.Error() != expected.Error() {
		t.Errorf("%s(%q) got error %q, want error %q", fn, input, err.Error(), expected.Error())
	}
}
