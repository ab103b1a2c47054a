// Package emergency lists nearby help when a user activates the panic flow.
package emergency

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/bryanwahyu/trustlayer/internal/domain/analysis"
)

const FallbackMessage = "Unable to access location. Using national defaults."

type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Locator resolves the caller's position. It returns
// analysis.ErrGeolocationUnavailable when no position can be had.
type Locator interface {
	Locate(ctx context.Context) (Location, error)
}

// LocatorFunc adapts a function to Locator.
type LocatorFunc func(ctx context.Context) (Location, error)

func (f LocatorFunc) Locate(ctx context.Context) (Location, error) { return f(ctx) }

// Fixed returns a Locator for coordinates supplied by the client.
// A nil location means none was shared.
func Fixed(loc *Location) Locator {
	return LocatorFunc(func(context.Context) (Location, error) {
		if loc == nil {
			return Location{}, analysis.ErrGeolocationUnavailable
		}
		if loc.Lat < -90 || loc.Lat > 90 || loc.Lng < -180 || loc.Lng > 180 {
			return Location{}, fmt.Errorf("%w: coordinates out of range", analysis.ErrGeolocationUnavailable)
		}
		return *loc, nil
	})
}

type Spot struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Distance string `json:"distance"`
	Time     string `json:"time"`
	Phone    string `json:"phone"`
}

type Response struct {
	Located  bool      `json:"located"`
	Location *Location `json:"location,omitempty"`
	Message  string    `json:"message,omitempty"`
	Spots    []Spot    `json:"spots"`
}

var (
	nearbySpots = []Spot{
		{Name: "Central Police Precinct", Type: "Police", Distance: "0.8 km", Time: "3 min", Phone: "911"},
		{Name: "Women's Crisis Center", Type: "Support", Distance: "1.2 km", Time: "5 min", Phone: "1-800-SAFE"},
		{Name: "Metro General Hospital", Type: "Medical", Distance: "2.1 km", Time: "8 min", Phone: "911"},
	}
	nationalSpots = []Spot{
		{Name: "Emergency Services", Type: "General", Distance: "--", Time: "--", Phone: "911"},
		{Name: "Cybercrime Hotline", Type: "Support", Distance: "National", Time: "24/7", Phone: "1091"},
	}
)

type Service struct {
	log *zap.Logger
}

func NewService(log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{log: log}
}

// Activate never fails: any locator error falls back to national defaults.
func (s *Service) Activate(ctx context.Context, locator Locator) Response {
	loc, err := locator.Locate(ctx)
	if err != nil {
		if !errors.Is(err, analysis.ErrGeolocationUnavailable) {
			s.log.Warn("locator failed", zap.Error(err))
		}
		return Response{Message: FallbackMessage, Spots: append([]Spot(nil), nationalSpots...)}
	}
	s.log.Info("emergency activated with location")
	return Response{Located: true, Location: &loc, Spots: append([]Spot(nil), nearbySpots...)}
}
