package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultLine(t *testing.T) {
	assert.Equal(t, "No businesses found based on your criteria.", resultLine(0, "businesses.csv"))
	assert.Equal(t, "Found 3 businesses, saved to out.csv", resultLine(3, "out.csv"))
}

func TestCheckFlags(t *testing.T) {
	tests := []struct {
		name    string
		argv    []string
		wantErr string
	}{
		{name: "place only", argv: []string{"--place", "Philadelphia, PA"}},
		{name: "coordinates", argv: []string{"--lat", "39.95", "--lng", "-75.16"}},
		{name: "no location", argv: nil, wantErr: "either --place or --lat/--lng is required"},
		{name: "place and coordinates", argv: []string{"--place", "x", "--lat", "1", "--lng", "2"}, wantErr: "mutually exclusive"},
		{name: "lat without lng", argv: []string{"--lat", "1"}, wantErr: "--lat and --lng must be given together"},
		{name: "both radius units", argv: []string{"--place", "x", "--radius", "100", "--radius-miles", "2"}, wantErr: "--radius and --radius-miles"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &cobra.Command{Use: "test"}
			flags := cmd.Flags()
			flags.StringVarP(&args.place, "place", "p", "", "")
			flags.Float64Var(&args.lat, "lat", 0, "")
			flags.Float64Var(&args.lng, "lng", 0, "")
			flags.IntVarP(&args.radius, "radius", "r", 5000, "")
			flags.Float64Var(&args.radiusMiles, "radius-miles", 0, "")
			require.NoError(t, flags.Parse(tt.argv))

			err := checkFlags(cmd)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
