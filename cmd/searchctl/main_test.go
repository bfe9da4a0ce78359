package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/schemalabz/opencouncil-sub005/internal/domain/search/request"
)

// runSearchFlags parses args with the search flag set and returns the mapped params.
func runSearchFlags(t *testing.T, args ...string) (request.Params, error) {
	t.Helper()
	var (
		got    request.Params
		gotErr error
	)
	app := &cli.App{
		Name: "searchctl",
		Commands: []*cli.Command{
			{
				Name:  "search",
				Flags: searchFlags(),
				Action: func(c *cli.Context) error {
					got, gotErr = searchParams(c)
					return nil
				},
			},
		},
	}
	require.NoError(t, app.Run(append([]string{"searchctl", "search"}, args...)))
	return got, gotErr
}

func TestSearchParams_AllFlags(t *testing.T) {
	p, err := runSearchFlags(t,
		"--city", "athens", "--city", "chania",
		"--person", "p1",
		"--party", "pa1",
		"--topic", "t1",
		"--date-start", "2024-01-01", "--date-end", "2024-03-31",
		"--lat", "37.98", "--lon", "23.72", "--radius-km", "2.5",
		"--semantic",
		"--size", "5", "--from", "10", "--rank-window", "50", "--rank-constant", "20",
		"--no-inner-hits",
		"ποδηλατόδρομος",
	)
	require.NoError(t, err)

	assert.Equal(t, "ποδηλατόδρομος", p.Query)
	assert.Equal(t, []string{"athens", "chania"}, p.CityIDs)
	assert.Equal(t, []string{"p1"}, p.PersonIDs)
	assert.Equal(t, []string{"pa1"}, p.PartyIDs)
	assert.Equal(t, []string{"t1"}, p.TopicIDs)
	require.NotNil(t, p.DateRange)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), p.DateRange.Start)
	assert.Equal(t, time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), p.DateRange.End)
	require.NotNil(t, p.Geo)
	assert.InDelta(t, 2.5, p.Geo.RadiusKm, 1e-9)
	assert.True(t, p.EnableSemantic)
	require.NotNil(t, p.Size)
	assert.Equal(t, 5, *p.Size)
	assert.Equal(t, 10, p.From)
	require.NotNil(t, p.RankWindowSize)
	assert.Equal(t, 50, *p.RankWindowSize)
	require.NotNil(t, p.RankConstant)
	assert.Equal(t, 20, *p.RankConstant)
	require.NotNil(t, p.InnerHits)
	assert.False(t, *p.InnerHits)
}

func TestSearchParams_Minimal(t *testing.T) {
	p, err := runSearchFlags(t, "budget")
	require.NoError(t, err)

	assert.Equal(t, "budget", p.Query)
	assert.Nil(t, p.DateRange)
	assert.Nil(t, p.Geo)
	assert.Nil(t, p.InnerHits)
	assert.Nil(t, p.Size)
	assert.Nil(t, p.RankWindowSize)
	assert.Nil(t, p.RankConstant)
}

func TestSearchParams_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no query", nil, "query argument"},
		{"two queries", []string{"a", "b"}, "query argument"},
		{"half date range", []string{"--date-start", "2024-01-01", "x"}, "date-end"},
		{"bad date", []string{"--date-start", "01/01/2024", "--date-end", "2024-01-02", "x"}, "date-start"},
		{"partial geo", []string{"--lat", "37.9", "--lon", "23.7", "x"}, "radius-km"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runSearchFlags(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestNewCLI_Commands(t *testing.T) {
	names := make([]string, 0, 4)
	for _, c := range newCLI().Commands {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"search", "ensure-indexes", "migrate", "health"}, names)
}
