package search

import (
	"context"
	"math"
	"os"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"qrent/server/internal/apperrors"
	"qrent/server/internal/models"
)

// topRegionLimit is how many of the most-matched regions a search reports.
const topRegionLimit = 5

// Store is the storage collaborator contract the search aggregator consumes.
type Store interface {
	FindProperties(ctx context.Context, filter PropertyFilter, sort []SortSpec, skip, take int) ([]models.Property, error)
	CountProperties(ctx context.Context, filter PropertyFilter) (int, error)
	AggregateProperties(ctx context.Context, filter PropertyFilter) (models.PropertyAggregate, error)
	FindCommute(ctx context.Context, propertyID int64, schoolName string) (int, error)
	GroupPropertiesByRegion(ctx context.Context, filter PropertyFilter, limit int) ([]models.RegionGroup, error)
	AggregateCommuteForRegion(ctx context.Context, filter PropertyFilter, regionID int64) (float64, error)
}

// Service compiles preferences into storage predicates and assembles the
// full search result: one page of properties plus whole-set aggregates.
type Service struct {
	store  Store
	logger *logrus.Logger
}

// NewService creates a search service backed by the given store.
func NewService(store Store, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &Service{store: store, logger: logger}
}

// Search validates the preference, compiles it, and executes it. Validation
// failures are rejected before any storage call; storage failures propagate
// as infrastructure errors. The sub-aggregates run concurrently but the
// result is assembled deterministically before returning.
func (s *Service) Search(ctx context.Context, pref *Preference) (*models.SearchResult, error) {
	np, err := Normalize(pref)
	if err != nil {
		return nil, err
	}

	filter, sort := Compile(np)
	skip := (np.PageNum - 1) * np.Size

	var (
		properties []models.Property
		aggregate  models.PropertyAggregate
		totalCount int
		topRegions []models.TopRegion
	)

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		page, err := s.store.FindProperties(egCtx, filter, sort, skip, np.Size)
		if err != nil {
			return apperrors.NewInfrastructure("find properties", err)
		}
		if err := s.resolveCommutes(egCtx, page, filter.TargetSchool); err != nil {
			return err
		}
		properties = page
		return nil
	})

	eg.Go(func() error {
		agg, err := s.store.AggregateProperties(egCtx, filter)
		if err != nil {
			return apperrors.NewInfrastructure("aggregate properties", err)
		}
		aggregate = agg
		return nil
	})

	eg.Go(func() error {
		count, err := s.store.CountProperties(egCtx, filter.SchoolOnly())
		if err != nil {
			return apperrors.NewInfrastructure("count properties", err)
		}
		totalCount = count
		return nil
	})

	eg.Go(func() error {
		regions, err := s.topRegions(egCtx, filter)
		if err != nil {
			return err
		}
		topRegions = regions
		return nil
	})

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return &models.SearchResult{
		Properties:         properties,
		TotalCount:         totalCount,
		FilteredCount:      aggregate.Count,
		AveragePrice:       round2(aggregate.AvgPrice),
		AverageCommuteTime: round2(aggregate.AvgCommuteTime),
		TopRegions:         topRegions,
	}, nil
}

// resolveCommutes attaches the commute time to the target school on every
// property of the page. The compiled filter guarantees a commute row exists
// for each returned property, so a missing row is a data-integrity fault and
// surfaces as a NotFoundError rather than a silent default.
func (s *Service) resolveCommutes(ctx context.Context, properties []models.Property, school string) error {
	for i := range properties {
		commute, err := s.store.FindCommute(ctx, properties[i].ID, school)
		if err != nil {
			if apperrors.IsNotFound(err) {
				s.logger.WithFields(logrus.Fields{
					"property_id": properties[i].ID,
					"school":      school,
				}).Error("Property matched search filter but has no commute row")
				return err
			}
			return apperrors.NewInfrastructure("find commute", err)
		}
		c := commute
		properties[i].CommuteTime = &c
	}
	return nil
}

// topRegions groups the filtered set by region, keeps the 5 most-matched,
// and annotates each with its average price and commute time under the same
// filter. The per-region commute aggregates are issued concurrently and
// written by index so assembly stays deterministic.
func (s *Service) topRegions(ctx context.Context, filter PropertyFilter) ([]models.TopRegion, error) {
	groups, err := s.store.GroupPropertiesByRegion(ctx, filter, topRegionLimit)
	if err != nil {
		return nil, apperrors.NewInfrastructure("group properties by region", err)
	}

	regions := make([]models.TopRegion, len(groups))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, group := range groups {
		i, group := i, group
		eg.Go(func() error {
			commute, err := s.store.AggregateCommuteForRegion(egCtx, filter, group.RegionID)
			if err != nil {
				return apperrors.NewInfrastructure("aggregate commute for region", err)
			}
			regions[i] = models.TopRegion{
				RegionName:     group.RegionName,
				Count:          group.Count,
				AveragePrice:   round2(group.AvgPrice),
				AvgCommuteTime: round2(commute),
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return regions, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
