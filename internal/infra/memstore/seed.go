package memstore

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/boddenberg/sales-flow-bfa-go/internal/domain"
	"github.com/boddenberg/sales-flow-bfa-go/internal/pipeline"
)

// seedFile mirrors the fixture layout: customers own products, products own
// phases, phases own activities. Parent ids are filled in while loading.
type seedFile struct {
	Customers []seedCustomer `yaml:"customers"`
}

type seedCustomer struct {
	ID       string        `yaml:"id"`
	Products []seedProduct `yaml:"products"`
}

type seedProduct struct {
	ID       string                  `yaml:"id"`
	Name     string                  `yaml:"name"`
	Status   pipeline.ActivityStatus `yaml:"status"`
	Schedule pipeline.Schedule       `yaml:"schedule"`
	Phases   []seedPhase             `yaml:"phases"`
}

type seedPhase struct {
	ID         string                  `yaml:"id"`
	Title      string                  `yaml:"title"`
	Status     pipeline.ActivityStatus `yaml:"status"`
	Schedule   pipeline.Schedule       `yaml:"schedule"`
	Activities []domain.Activity       `yaml:"activities"`
}

// LoadSeed reads a YAML fixture from path into the store.
func (s *Store) LoadSeed(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	return s.LoadSeedYAML(data)
}

// LoadSeedYAML decodes a YAML fixture and inserts every node. Schedule, event
// and document dates must be real calendar days; 31/02 or 99/99 fail the load
// instead of rolling over.
func (s *Store) LoadSeedYAML(data []byte) error {
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("decode seed: %w", err)
	}

	for _, c := range seed.Customers {
		if c.ID == "" {
			return fmt.Errorf("seed: customer without id")
		}
		for _, pr := range c.Products {
			if err := checkSchedule(pr.ID, pr.Schedule); err != nil {
				return err
			}
			s.AddProduct(domain.Product{
				ID:         pr.ID,
				CustomerID: c.ID,
				Name:       pr.Name,
				Status:     pr.Status,
				Schedule:   pr.Schedule,
			})
			for _, ph := range pr.Phases {
				if err := checkSchedule(ph.ID, ph.Schedule); err != nil {
					return err
				}
				s.AddPhase(domain.Phase{
					ID:        ph.ID,
					ProductID: pr.ID,
					Title:     ph.Title,
					Status:    ph.Status,
					Schedule:  ph.Schedule,
				})
				for _, a := range ph.Activities {
					if err := checkSchedule(a.ID, a.Schedule); err != nil {
						return err
					}
					if err := checkEvents(a); err != nil {
						return err
					}
					a.PhaseID = ph.ID
					s.AddActivity(a)
				}
			}
		}
	}
	return nil
}

func checkSchedule(id string, sch pipeline.Schedule) error {
	return checkDates(id, sch.StartForecast, sch.StartActual, sch.CompletionForecast, sch.CompletionActual)
}

func checkEvents(a domain.Activity) error {
	for _, ev := range a.Events {
		if err := checkDates(a.ID+"/"+ev.ID, ev.Date); err != nil {
			return err
		}
		for _, d := range ev.Documents {
			if err := checkDates(a.ID+"/"+d.ID, d.DueDate, d.ReceivedAt); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkDates(id string, dates ...string) error {
	for _, d := range dates {
		if d == "" {
			continue
		}
		if !calendarDate(d) {
			return fmt.Errorf("seed: node %s has invalid date %q", id, d)
		}
	}
	return nil
}

// calendarDate accepts what ParseDate accepts, minus rolled-over days and
// months.
func calendarDate(s string) bool {
	t, ok := pipeline.ParseDate(s)
	if !ok {
		return false
	}
	parts := strings.Split(strings.TrimSpace(s), "/")
	day, _ := strconv.Atoi(parts[0])
	month, _ := strconv.Atoi(parts[1])
	return t.Day() == day && int(t.Month()) == month
}
