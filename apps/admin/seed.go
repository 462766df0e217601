package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/vistavoyage/voyage/core"
	"github.com/vistavoyage/voyage/core/activity"
	"github.com/vistavoyage/voyage/core/destination"
	"github.com/vistavoyage/voyage/core/offer"
	"github.com/vistavoyage/voyage/core/tour"
	"github.com/vistavoyage/voyage/core/triptype"
)

type (
	catalogSeed struct {
		Destinations []destinationSeed `yaml:"destinations"`
		TripTypes    []tripTypeSeed    `yaml:"trip_types"`
		Activities   []activitySeed    `yaml:"activities"`
		Offers       []offerSeed       `yaml:"offers"`
		Packages     []packageSeed     `yaml:"packages"`
	}

	destinationSeed struct {
		Name            string `yaml:"name"`
		Country         string `yaml:"country"`
		City            string `yaml:"city"`
		Description     string `yaml:"description"`
		BestTimeToVisit string `yaml:"best_time_to_visit"`
		FeaturedImage   string `yaml:"featured_image"`
	}

	tripTypeSeed struct {
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
		Category    string `yaml:"category"`
	}

	activitySeed struct {
		Name           string   `yaml:"name"`
		Description    string   `yaml:"description"`
		Type           string   `yaml:"type"`
		DurationHours  *float64 `yaml:"duration_hours"`
		Difficulty     string   `yaml:"difficulty"`
		AgeRestriction string   `yaml:"age_restriction"`
		FeaturedImage  string   `yaml:"featured_image"`
	}

	offerSeed struct {
		Title              string    `yaml:"title"`
		Description        string    `yaml:"description"`
		DiscountPercentage *float64  `yaml:"discount_percentage"`
		DiscountAmount     *float64  `yaml:"discount_amount"`
		ValidFrom          time.Time `yaml:"valid_from"`
		ValidUntil         time.Time `yaml:"valid_until"`
	}

	// packageSeed refers to its relations by name.
	packageSeed struct {
		Title          string   `yaml:"title"`
		Description    string   `yaml:"description"`
		Price          float64  `yaml:"price"`
		DurationDays   int      `yaml:"duration_days"`
		DurationNights int      `yaml:"duration_nights"`
		Destination    string   `yaml:"destination"`
		TripType       string   `yaml:"trip_type"`
		Offer          string   `yaml:"offer"`
		Difficulty     string   `yaml:"difficulty"`
		FeaturedImage  string   `yaml:"featured_image"`
		Featured       bool     `yaml:"featured"`
		Highlights     []string `yaml:"highlights"`
		Itinerary      string   `yaml:"itinerary"`
		Inclusions     []string `yaml:"inclusions"`
		Exclusions     []string `yaml:"exclusions"`
		MaxGroupSize   int      `yaml:"max_group_size"`
		Activities     []string `yaml:"activities"`
	}

	seedStats struct {
		created, skipped int
	}
)

func (s *seedStats) add(created bool) {
	if created {
		s.created++
	} else {
		s.skipped++
	}
}

// seedPage is large enough to find an entry by name among the matches of a search.
var seedPage = core.Page{Page: 1, Limit: core.MaxPageLimit}

// findByName returns the ID of the item whose name equals name, ignoring case.
func findByName[T any](items []T, name string, key func(T) (id, name string)) (string, bool) {
	for _, it := range items {
		id, n := key(it)
		if strings.EqualFold(n, name) {
			return id, true
		}
	}
	return "", false
}

func (cli *commandLine) seedFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "reading seed file")
	}
	var seed catalogSeed
	if err = yaml.Unmarshal(data, &seed); err != nil {
		return errors.Wrap(err, "parsing seed file")
	}
	stats, err := cli.seed(ctx, seed)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Seeded catalog: %d created, %d already present.\n", stats.created, stats.skipped)
	return nil
}

// seed creates the entries of catalog that do not exist yet, matching them by name or title.
func (cli *commandLine) seed(ctx context.Context, catalog catalogSeed) (seedStats, error) {
	var stats seedStats
	destIDs := make(map[string]string)
	ttIDs := make(map[string]string)
	actIDs := make(map[string]string)
	offerIDs := make(map[string]string)

	for _, d := range catalog.Destinations {
		id, created, err := cli.seedDestination(ctx, d)
		if err != nil {
			return stats, errors.Wrapf(err, "seeding destination %q", d.Name)
		}
		destIDs[strings.ToLower(d.Name)] = id
		stats.add(created)
	}
	for _, tt := range catalog.TripTypes {
		id, created, err := cli.seedTripType(ctx, tt)
		if err != nil {
			return stats, errors.Wrapf(err, "seeding trip type %q", tt.Name)
		}
		ttIDs[strings.ToLower(tt.Name)] = id
		stats.add(created)
	}
	for _, a := range catalog.Activities {
		id, created, err := cli.seedActivity(ctx, a)
		if err != nil {
			return stats, errors.Wrapf(err, "seeding activity %q", a.Name)
		}
		actIDs[strings.ToLower(a.Name)] = id
		stats.add(created)
	}
	for _, o := range catalog.Offers {
		id, created, err := cli.seedOffer(ctx, o)
		if err != nil {
			return stats, errors.Wrapf(err, "seeding offer %q", o.Title)
		}
		offerIDs[strings.ToLower(o.Title)] = id
		stats.add(created)
	}

	lookup := func(ids map[string]string, what, name string) (string, error) {
		if name == "" {
			return "", nil
		}
		id, ok := ids[strings.ToLower(name)]
		if !ok {
			return "", errors.Errorf("unknown %s %q", what, name)
		}
		return id, nil
	}
	for _, p := range catalog.Packages {
		in := tour.Input{
			Title:          p.Title,
			Description:    p.Description,
			Price:          p.Price,
			DurationDays:   p.DurationDays,
			DurationNights: p.DurationNights,
			Difficulty:     p.Difficulty,
			FeaturedImage:  p.FeaturedImage,
			IsFeatured:     &p.Featured,
			Highlights:     p.Highlights,
			Itinerary:      p.Itinerary,
			Inclusions:     p.Inclusions,
			Exclusions:     p.Exclusions,
			MaxGroupSize:   p.MaxGroupSize,
		}
		var err error
		if in.DestinationID, err = lookup(destIDs, "destination", p.Destination); err != nil {
			return stats, errors.Wrapf(err, "seeding package %q", p.Title)
		}
		if in.TripTypeID, err = lookup(ttIDs, "trip type", p.TripType); err != nil {
			return stats, errors.Wrapf(err, "seeding package %q", p.Title)
		}
		if in.OfferID, err = lookup(offerIDs, "offer", p.Offer); err != nil {
			return stats, errors.Wrapf(err, "seeding package %q", p.Title)
		}
		for _, name := range p.Activities {
			id, err := lookup(actIDs, "activity", name)
			if err != nil {
				return stats, errors.Wrapf(err, "seeding package %q", p.Title)
			}
			in.ActivityIDs = append(in.ActivityIDs, id)
		}

		created, err := cli.seedPackage(ctx, in)
		if err != nil {
			return stats, errors.Wrapf(err, "seeding package %q", p.Title)
		}
		stats.add(created)
	}
	return stats, nil
}

func (cli *commandLine) seedDestination(ctx context.Context, d destinationSeed) (string, bool, error) {
	found, err := cli.svc.Destination.Query(ctx, destination.QueryFilter{Search: d.Name}, seedPage, nil)
	if err != nil {
		return "", false, err
	}
	if id, ok := findByName(found.Items, d.Name, func(it destination.Destination) (string, string) { return it.ID, it.Name }); ok {
		return id, false, nil
	}
	dest, err := cli.svc.Destination.Create(ctx, "", destination.Input{
		Name:            d.Name,
		Country:         d.Country,
		City:            d.City,
		Description:     d.Description,
		BestTimeToVisit: d.BestTimeToVisit,
		FeaturedImage:   d.FeaturedImage,
	})
	return dest.ID, err == nil, err
}

func (cli *commandLine) seedTripType(ctx context.Context, s tripTypeSeed) (string, bool, error) {
	found, err := cli.svc.TripType.Query(ctx, triptype.QueryFilter{Search: s.Name}, seedPage, nil)
	if err != nil {
		return "", false, err
	}
	if id, ok := findByName(found.Items, s.Name, func(it triptype.TripType) (string, string) { return it.ID, it.Name }); ok {
		return id, false, nil
	}
	tt, err := cli.svc.TripType.Create(ctx, triptype.Input{Name: s.Name, Description: s.Description, Category: s.Category})
	return tt.ID, err == nil, err
}

func (cli *commandLine) seedActivity(ctx context.Context, s activitySeed) (string, bool, error) {
	found, err := cli.svc.Activity.Query(ctx, activity.QueryFilter{Search: s.Name}, seedPage, nil)
	if err != nil {
		return "", false, err
	}
	if id, ok := findByName(found.Items, s.Name, func(it activity.Activity) (string, string) { return it.ID, it.Name }); ok {
		return id, false, nil
	}
	act, err := cli.svc.Activity.Create(ctx, activity.Input{
		Name:            s.Name,
		Description:     s.Description,
		ActivityType:    s.Type,
		DurationHours:   s.DurationHours,
		DifficultyLevel: s.Difficulty,
		AgeRestriction:  s.AgeRestriction,
		FeaturedImage:   s.FeaturedImage,
	})
	return act.ID, err == nil, err
}

func (cli *commandLine) seedOffer(ctx context.Context, s offerSeed) (string, bool, error) {
	found, err := cli.svc.Offer.Query(ctx, offer.QueryFilter{Search: s.Title}, seedPage, nil)
	if err != nil {
		return "", false, err
	}
	if id, ok := findByName(found.Items, s.Title, func(it offer.Offer) (string, string) { return it.ID, it.Title }); ok {
		return id, false, nil
	}
	o, err := cli.svc.Offer.Create(ctx, offer.Input{
		Title:              s.Title,
		Description:        s.Description,
		DiscountPercentage: s.DiscountPercentage,
		DiscountAmount:     s.DiscountAmount,
		ValidFrom:          s.ValidFrom,
		ValidUntil:         s.ValidUntil,
	})
	return o.ID, err == nil, err
}

func (cli *commandLine) seedPackage(ctx context.Context, in tour.Input) (bool, error) {
	found, err := cli.svc.Package.Query(ctx, tour.QueryFilter{Search: in.Title}, seedPage, nil)
	if err != nil {
		return false, err
	}
	if _, ok := findByName(found.Items, in.Title, func(it tour.Package) (string, string) { return it.ID, it.Title }); ok {
		return false, nil
	}
	if _, err = cli.svc.Package.Create(ctx, in); err != nil {
		return false, err
	}
	return true, nil
}
