package stats

import (
	"context"
	"math"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"qrent/server/internal/apperrors"
	"qrent/server/internal/models"
)

// Store is the storage collaborator contract the statistics calculator
// consumes. FindPropertiesByRegion must return each property with its full
// set of commute rows, independent of any target school.
type Store interface {
	FindRegionsByNamePrefixes(ctx context.Context, tokens []string) ([]models.Region, error)
	FindPropertiesByRegion(ctx context.Context, regionID int64) ([]models.Property, error)
}

// Calculator computes per-region market statistics from the raw property and
// commute data.
type Calculator struct {
	store  Store
	logger *logrus.Logger
}

// NewCalculator creates a calculator backed by the given store.
func NewCalculator(store Store, logger *logrus.Logger) *Calculator {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &Calculator{store: store, logger: logger}
}

// Compute resolves the regions matching the given name-prefix tokens (all
// regions when no tokens are given) and computes the statistics for each.
// A requested token that matches no region yields a synthetic zero-valued
// entry carrying the literal token, so callers always receive one entry per
// requested token when matches are absent.
func (c *Calculator) Compute(ctx context.Context, tokens []string) ([]models.RegionStats, error) {
	regions, err := c.store.FindRegionsByNamePrefixes(ctx, tokens)
	if err != nil {
		return nil, apperrors.NewInfrastructure("find regions", err)
	}

	results := make([]models.RegionStats, len(regions))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, region := range regions {
		i, region := i, region
		eg.Go(func() error {
			stats, err := c.computeRegion(egCtx, region)
			if err != nil {
				return err
			}
			results[i] = stats
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	for _, token := range unmatchedTokens(tokens, regions) {
		results = append(results, models.RegionStats{RegionName: token})
	}

	return results, nil
}

// computeRegion derives the four statistics for one region. Price-per-room is
// the mean of per-property price/bedroom ratios over properties with at least
// one bedroom, not total price over total bedrooms. Commute time averages
// every known commute row across all schools.
func (c *Calculator) computeRegion(ctx context.Context, region models.Region) (models.RegionStats, error) {
	properties, err := c.store.FindPropertiesByRegion(ctx, region.ID)
	if err != nil {
		return models.RegionStats{}, apperrors.NewInfrastructure("find properties by region", err)
	}

	var (
		priceSum     int
		perRoomSum   float64
		perRoomCount int
		commuteSum   int
		commuteCount int
	)

	for _, property := range properties {
		priceSum += property.Price
		if property.BedroomCount > 0 {
			perRoomSum += float64(property.Price) / float64(property.BedroomCount)
			perRoomCount++
		}
		for _, commute := range property.Commutes {
			if commute.CommuteTime != nil {
				commuteSum += *commute.CommuteTime
				commuteCount++
			}
		}
	}

	stats := models.RegionStats{
		RegionName:      region.Name,
		TotalProperties: len(properties),
	}
	if len(properties) > 0 {
		stats.AvgPropertyPrice = round2(float64(priceSum) / float64(len(properties)))
	}
	if perRoomCount > 0 {
		stats.AvgPricePerRoom = round2(perRoomSum / float64(perRoomCount))
	}
	if commuteCount > 0 {
		stats.AvgCommuteTime = round2(float64(commuteSum) / float64(commuteCount))
	}

	return stats, nil
}

// unmatchedTokens returns the requested tokens that are not a prefix of any
// resolved region name. With no requested tokens (all-regions mode) there is
// nothing to report.
func unmatchedTokens(tokens []string, regions []models.Region) []string {
	var unmatched []string
	for _, token := range tokens {
		matched := false
		for _, region := range regions {
			if strings.HasPrefix(region.Name, token) {
				matched = true
				break
			}
		}
		if !matched {
			unmatched = append(unmatched, token)
		}
	}
	return unmatched
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
