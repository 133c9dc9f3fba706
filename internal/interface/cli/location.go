package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/fieldsvc/fieldsvc/internal/application/dto"
	"github.com/fieldsvc/fieldsvc/internal/domain/apperr"
	"github.com/fieldsvc/fieldsvc/internal/infrastructure/di"
)

// locationFlags select where start and finalize take their coordinates from
type locationFlags struct {
	lat, lon float64
	noGPS    bool
}

func (f *locationFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.lat, "lat", 0, "Latitude to send instead of asking the location source")
	cmd.Flags().Float64Var(&f.lon, "lon", 0, "Longitude to send instead of asking the location source")
	cmd.Flags().BoolVar(&f.noGPS, "no-gps", false, "Send (0,0) without asking the location source")
	cmd.MarkFlagsRequiredTogether("lat", "lon")
	cmd.MarkFlagsMutuallyExclusive("lat", "no-gps")
}

// resolve returns explicit coordinates, (0,0) with --no-gps, or a
// best-effort position from the configured source
func (f *locationFlags) resolve(ctx context.Context, cmd *cobra.Command, c *di.Container, op string) (dto.CoordinatesDTO, error) {
	switch {
	case f.noGPS:
		return dto.CoordinatesDTO{}, nil
	case cmd.Flags().Changed("lat") || cmd.Flags().Changed("lon"):
		if f.lat < -90 || f.lat > 90 || f.lon < -180 || f.lon > 180 {
			return dto.CoordinatesDTO{}, apperr.Validation(op, "coordinates out of range")
		}
		return dto.CoordinatesDTO{Latitude: f.lat, Longitude: f.lon}, nil
	}

	pos := c.GetAcquirer().AcquireOrZero(ctx)
	return dto.CoordinatesDTO{Latitude: pos.Latitude, Longitude: pos.Longitude}, nil
}
