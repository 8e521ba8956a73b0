package scenes

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"tournament_bot/internal/domain"

	"github.com/shopspring/decimal"
)

var (
	mobileRe   = regexp.MustCompile(`^[6-9]\d{9}$`)
	upiRe      = regexp.MustCompile(`^[\w.-]+@\w+$`)
	playerIDRe = regexp.MustCompile(`^\d{8,12}$`)
	startRe    = regexp.MustCompile(`^\d{2}/\d{2}/\d{4} \d{2}:\d{2}$`)
)

const startLayout = "02/01/2006 15:04"

func invalid(field, reason string) error {
	return &domain.ValidationError{Field: field, Reason: reason}
}

func parseName(s string, min, max int) (string, error) {
	s = strings.Join(strings.Fields(s), " ")
	if n := utf8.RuneCountInString(s); n < min || n > max {
		return "", invalid("name", "must be "+strconv.Itoa(min)+"-"+strconv.Itoa(max)+" characters")
	}
	return s, nil
}

func parseMobile(s string) (string, error) {
	s = strings.TrimPrefix(strings.ReplaceAll(s, " ", ""), "+91")
	if !mobileRe.MatchString(s) {
		return "", invalid("mobile", "must be a 10 digit Indian mobile number")
	}
	return s, nil
}

func parseUPI(s string) (string, error) {
	if !upiRe.MatchString(s) {
		return "", invalid("upi_id", "must look like name@bank")
	}
	return strings.ToLower(s), nil
}

func parsePlayerID(s string) (string, error) {
	if !playerIDRe.MatchString(s) {
		return "", invalid("player_id", "must be 8 to 12 digits")
	}
	return s, nil
}

// parseAmount accepts rupees with at most two decimal places
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "₹")
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return decimal.Zero, invalid("amount", "must be a number")
	}
	if d.IsNegative() {
		return decimal.Zero, invalid("amount", "must not be negative")
	}
	if !d.Equal(d.Truncate(2)) {
		return decimal.Zero, invalid("amount", "at most two decimal places")
	}
	return d, nil
}

func parseKills(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, invalid("kills", "must be a whole number, 0 or more")
	}
	return n, nil
}

// parseStart reads DD/MM/YYYY HH:MM in loc and requires a future instant
func parseStart(s string, loc *time.Location, now time.Time) (time.Time, error) {
	if !startRe.MatchString(s) {
		return time.Time{}, invalid("start_time", "use DD/MM/YYYY HH:MM")
	}
	t, err := time.ParseInLocation(startLayout, s, loc)
	if err != nil {
		return time.Time{}, invalid("start_time", "not a real date")
	}
	if !t.After(now) {
		return time.Time{}, invalid("start_time", "must be in the future")
	}
	return t, nil
}
