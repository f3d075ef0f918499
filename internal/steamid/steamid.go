// Package steamid parses and converts Steam account identifiers between
// their common textual representations.
package steamid

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// id64Base is the 64-bit id of account 0 in the public universe.
const id64Base uint64 = 76561197960265728

var (
	steam2Re = regexp.MustCompile(`^STEAM_[0-5]:([01]):(\d+)$`)
	steam3Re = regexp.MustCompile(`^\[?U:1:(\d+)\]?$`)
)

// ID is a Steam account in canonical 64-bit form.
type ID uint64

// Parse accepts a SteamID in any of the common spellings: the 64-bit id,
// STEAM_X:Y:Z, [U:1:N], or a steamcommunity.com/profiles/ URL. Vanity URLs
// are not resolvable offline and are rejected.
func Parse(input string) (ID, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return 0, fmt.Errorf("steamid: empty input")
	}

	if strings.Contains(s, "steamcommunity.com") {
		return parseProfileURL(s)
	}

	if m := steam2Re.FindStringSubmatch(strings.ToUpper(s)); m != nil {
		y, _ := strconv.ParseUint(m[1], 10, 64)
		z, _ := strconv.ParseUint(m[2], 10, 64)
		return fromAccountID(z*2 + y)
	}
	if m := steam3Re.FindStringSubmatch(s); m != nil {
		n, _ := strconv.ParseUint(m[1], 10, 64)
		return fromAccountID(n)
	}

	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("steamid: unrecognized format %q", input)
	}
	if n < id64Base {
		// A bare number below the 64-bit range is an account id.
		return fromAccountID(n)
	}
	return ID(n), nil
}

func parseProfileURL(s string) (ID, error) {
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return 0, fmt.Errorf("steamid: bad profile url: %w", err)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) >= 2 && parts[0] == "profiles" {
		n, err := strconv.ParseUint(parts[1], 10, 64)
		if err != nil || n < id64Base {
			return 0, fmt.Errorf("steamid: bad profile url %q", s)
		}
		return ID(n), nil
	}
	if len(parts) >= 1 && parts[0] == "id" {
		return 0, fmt.Errorf("steamid: vanity urls cannot be resolved, send the numeric id")
	}
	return 0, fmt.Errorf("steamid: unrecognized profile url %q", s)
}

func fromAccountID(n uint64) (ID, error) {
	if n == 0 || n > 1<<32-1 {
		return 0, fmt.Errorf("steamid: account id %d out of range", n)
	}
	return ID(id64Base + n), nil
}

// AccountID returns the 32-bit account number.
func (id ID) AccountID() uint32 {
	return uint32(uint64(id) - id64Base)
}

// Steam2 renders the legacy STEAM_1:Y:Z form.
func (id ID) Steam2() string {
	acc := uint64(id.AccountID())
	return fmt.Sprintf("STEAM_1:%d:%d", acc%2, acc/2)
}

// Steam3 renders the [U:1:N] form.
func (id ID) Steam3() string {
	return fmt.Sprintf("[U:1:%d]", id.AccountID())
}

// ID64 returns the 64-bit id as a decimal string.
func (id ID) ID64() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ProfileURL returns the permanent community profile link.
func (id ID) ProfileURL() string {
	return "https://steamcommunity.com/profiles/" + id.ID64()
}
