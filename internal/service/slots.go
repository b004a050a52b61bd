package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"flowershop/internal/database"
	"flowershop/internal/domain"
	"flowershop/internal/models"

	"github.com/rs/zerolog"
)

const (
	SelectionExpress        = "express"
	selectionTodayPrefix    = "today-"
	selectionTomorrowPrefix = "tomorrow-"
)

// ResolveSlots computes the delivery windows that can be offered at now.
// A slot is offered today while more than DeliveryLeadTime remains before its end;
// tomorrow offers depend only on the AvailableTomorrow flag.
func ResolveSlots(now time.Time, slots []models.DeliveryTimeSlot) models.SlotAvailability {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	result := models.SlotAvailability{
		TodayDate:    today,
		TomorrowDate: today.AddDate(0, 0, 1),
		Today:        []models.DeliveryTimeSlot{},
		Tomorrow:     []models.DeliveryTimeSlot{},
	}
	if len(slots) == 0 {
		return result
	}

	regular := make([]models.DeliveryTimeSlot, 0, len(slots))
	var latestEnd models.TimeOfDay
	for i := range slots {
		slot := slots[i]
		if latestEnd.Before(slot.End) {
			latestEnd = slot.End
		}
		if slot.IsExpress {
			if result.ExpressSlot == nil {
				express := slot
				result.ExpressSlot = &express
			}
			continue
		}
		regular = append(regular, slot)
	}

	sort.SliceStable(regular, func(i, j int) bool {
		if regular[i].Start != regular[j].Start {
			return regular[i].Start.Before(regular[j].Start)
		}
		return regular[i].ID < regular[j].ID
	})

	for _, slot := range regular {
		if offerableToday(slot, now) {
			result.Today = append(result.Today, slot)
		}
		if slot.AvailableTomorrow {
			result.Tomorrow = append(result.Tomorrow, slot)
		}
	}

	if result.ExpressSlot != nil {
		result.ExpressAvailable = offerableToday(*result.ExpressSlot, now)
		if !result.ExpressAvailable && len(result.Today) == 0 {
			result.CutoffMessage = cutoffMessage(latestEnd)
		}
	}
	return result
}

func offerableToday(slot models.DeliveryTimeSlot, now time.Time) bool {
	return slot.End.On(now).Sub(now) > models.DeliveryLeadTime
}

func cutoffMessage(cutoff models.TimeOfDay) string {
	return fmt.Sprintf("Доставка на сегодня уже недоступна: заказы на сегодня принимаются до %s. Оформите доставку на завтра!", cutoff)
}

// DeliverySelection is a parsed checkout choice.
type DeliverySelection struct {
	Raw       string
	Date      time.Time
	IsExpress bool
	From      *models.TimeOfDay
	To        *models.TimeOfDay
}

type SlotService struct {
	repo   domain.SlotRepository
	clock  domain.Clock
	logger *zerolog.Logger
}

func NewSlotService(repo domain.SlotRepository, clock domain.Clock, logger *zerolog.Logger) *SlotService {
	return &SlotService{
		repo:   repo,
		clock:  clock,
		logger: logger,
	}
}

// Availability resolves the configured slots against the current time.
func (s *SlotService) Availability(ctx context.Context) (models.SlotAvailability, error) {
	slots, err := s.repo.ListSlots(ctx)
	if err != nil {
		return models.SlotAvailability{}, err
	}
	return ResolveSlots(s.clock.Now(), slots), nil
}

// ResolveSelection validates a raw "express" / "today-{id}" / "tomorrow-{id}" choice
// against what is offerable right now.
func (s *SlotService) ResolveSelection(ctx context.Context, raw string) (*DeliverySelection, error) {
	raw = strings.TrimSpace(raw)
	kind, id, err := parseSelection(raw)
	if err != nil {
		return nil, err
	}

	slots, err := s.repo.ListSlots(ctx)
	if err != nil {
		return nil, err
	}
	availability := ResolveSlots(s.clock.Now(), slots)

	var (
		slot models.DeliveryTimeSlot
		date = availability.TodayDate
		ok   bool
	)
	switch kind {
	case SelectionExpress:
		if availability.ExpressSlot == nil {
			return nil, ErrSlotNotFound
		}
		if !availability.ExpressAvailable {
			return nil, ErrSlotUnavailable
		}
		slot = *availability.ExpressSlot
	case selectionTodayPrefix:
		if !slotExists(slots, id) {
			return nil, ErrSlotNotFound
		}
		if slot, ok = availability.FindToday(id); !ok {
			return nil, ErrSlotUnavailable
		}
	case selectionTomorrowPrefix:
		if !slotExists(slots, id) {
			return nil, ErrSlotNotFound
		}
		if slot, ok = availability.FindTomorrow(id); !ok {
			return nil, ErrSlotUnavailable
		}
		date = availability.TomorrowDate
	}

	from, to := slot.Start, slot.End
	return &DeliverySelection{
		Raw:       raw,
		Date:      date,
		IsExpress: slot.IsExpress,
		From:      &from,
		To:        &to,
	}, nil
}

func parseSelection(raw string) (kind string, id int64, err error) {
	if raw == SelectionExpress {
		return SelectionExpress, 0, nil
	}
	for _, prefix := range []string{selectionTodayPrefix, selectionTomorrowPrefix} {
		if rest, found := strings.CutPrefix(raw, prefix); found {
			id, err := strconv.ParseInt(rest, 10, 64)
			if err != nil || id <= 0 {
				return "", 0, ErrInvalidSelection
			}
			return prefix, id, nil
		}
	}
	return "", 0, ErrInvalidSelection
}

func slotExists(slots []models.DeliveryTimeSlot, id int64) bool {
	for i := range slots {
		if slots[i].ID == id {
			return true
		}
	}
	return false
}

func (s *SlotService) List(ctx context.Context) ([]models.DeliveryTimeSlot, error) {
	return s.repo.ListSlots(ctx)
}

func (s *SlotService) Get(ctx context.Context, id int64) (*models.DeliveryTimeSlot, error) {
	slot, err := s.repo.GetSlot(ctx, id)
	if err != nil {
		return nil, translateNotFound(err, ErrSlotNotFound)
	}
	return slot, nil
}

func (s *SlotService) Create(ctx context.Context, slot *models.DeliveryTimeSlot) error {
	if err := prepareSlot(slot); err != nil {
		return err
	}
	if err := s.repo.CreateSlot(ctx, slot); err != nil {
		return err
	}
	s.logger.Info().Int64("slot_id", slot.ID).Str("label", slot.Label).Msg("Delivery slot created")
	return nil
}

func (s *SlotService) Update(ctx context.Context, slot *models.DeliveryTimeSlot) error {
	if err := prepareSlot(slot); err != nil {
		return err
	}
	if err := s.repo.UpdateSlot(ctx, slot); err != nil {
		return translateNotFound(err, ErrSlotNotFound)
	}
	return nil
}

func (s *SlotService) Delete(ctx context.Context, id int64) error {
	return translateNotFound(s.repo.DeleteSlot(ctx, id), ErrSlotNotFound)
}

func prepareSlot(slot *models.DeliveryTimeSlot) error {
	if !slot.Start.Valid() || !slot.End.Valid() {
		return newValidationError("time", "некорректное время слота")
	}
	if !slot.Start.Before(slot.End) {
		return newValidationError("time_end", "время окончания должно быть позже времени начала")
	}
	slot.Label = strings.TrimSpace(slot.Label)
	if slot.Label == "" {
		slot.Label = slot.DefaultLabel()
	}
	return nil
}

// IsExpressConflict reports a violation of the single express slot rule.
func IsExpressConflict(err error) bool {
	return errors.Is(err, database.ErrExpressSlotExists)
}

// Sync upserts the slots loaded from the slots file.
func (s *SlotService) Sync(ctx context.Context, slots []models.DeliveryTimeSlot) error {
	for i := range slots {
		if err := prepareSlot(&slots[i]); err != nil {
			return fmt.Errorf("slot %d: %w", slots[i].ID, err)
		}
	}
	if err := s.repo.SyncSlots(ctx, slots); err != nil {
		return err
	}
	s.logger.Info().Int("count", len(slots)).Msg("Delivery slots synchronized")
	return nil
}
