package main

import (
	"errors"
	"testing"
)

func TestFormatCobraError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "invalid flag value",
			err:  errors.New(`invalid argument "5x" for "--calculation" flag: time: unknown unit "x" in duration "5x"`),
			want: `invalid value "5x" for --calculation`,
		},
		{
			name: "shorthand flag",
			err:  errors.New(`invalid argument "abc" for "-c, --count" flag: strconv.ParseInt: parsing "abc": invalid syntax`),
			want: `invalid value "abc" for -c, --count`,
		},
		{
			name: "other errors pass through",
			err:  errors.New(`unknown command "bogus" for "spreadfire"`),
			want: `unknown command "bogus" for "spreadfire"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatCobraError(tt.err); got != tt.want {
				t.Errorf("formatCobraError() = %q, want %q", got, tt.want)
			}
		})
	}
}
