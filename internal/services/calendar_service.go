package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"outfitter-service/internal/models"

	"github.com/google/uuid"
)

// CalendarService projects calendar hunts from executed contracts and manages
// manual scheduling.
type CalendarService struct {
	huntRepo     models.HuntRepository
	contractRepo models.ContractRepository
	events       models.EventPublisher
}

// NewCalendarService creates a new calendar service
func NewCalendarService(huntRepo models.HuntRepository, contractRepo models.ContractRepository) *CalendarService {
	return &CalendarService{
		huntRepo:     huntRepo,
		contractRepo: contractRepo,
	}
}

// SetEventPublisher wires the NATS publisher for hunt events
func (s *CalendarService) SetEventPublisher(events models.EventPublisher) {
	s.events = events
}

// completionFields is the shape of contract completion data the projector
// reads. Unknown keys are ignored.
type completionFields struct {
	Species   string `json:"species"`
	Unit      string `json:"unit"`
	Weapon    string `json:"weapon"`
	Camp      string `json:"camp"`
	HuntCode  string `json:"hunt_code"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// ProjectFromContract upserts the hunt for a fully signed contract: creates a
// new hunt when the contract has none, updates the existing one otherwise.
// The projected hunt waits in pending_guide_assignment with internal-only
// visibility until an admin assigns a guide. Safe to call repeatedly.
func (s *CalendarService) ProjectFromContract(ctx context.Context, contract *models.HuntContract) (*models.Hunt, error) {
	if !contract.FullySigned() {
		return nil, NewInvalidStateError("contract", string(contract.Status), "calendar projection requires both signatures")
	}

	var fields completionFields
	if len(contract.CompletionData) > 0 {
		if err := json.Unmarshal(contract.CompletionData, &fields); err != nil {
			log.Printf("Warning: completion data for contract %s is not an object: %v", contract.ID, err)
		}
	}

	var hunt *models.Hunt
	if contract.HuntID != nil {
		existing, err := s.huntRepo.GetByID(ctx, contract.OutfitterID, *contract.HuntID)
		if err != nil {
			return nil, err
		}
		hunt = existing
	} else {
		hunt = &models.Hunt{
			OutfitterID: contract.OutfitterID,
		}
	}

	applyCompletionFields(hunt, contract, fields)
	hunt.Status = models.HuntStatusPendingGuide
	hunt.Visibility = models.HuntVisibilityInternal

	if contract.HuntID != nil {
		if err := s.huntRepo.Update(ctx, hunt); err != nil {
			return nil, err
		}
	} else {
		if err := s.huntRepo.Create(ctx, hunt); err != nil {
			return nil, err
		}
		// Link the contract to its new hunt so reprojection updates in place
		huntID := hunt.ID
		contract.HuntID = &huntID
		if err := s.contractRepo.Update(ctx, contract); err != nil {
			return nil, fmt.Errorf("failed to link contract to projected hunt: %w", err)
		}
	}

	if s.events != nil {
		if err := s.events.PublishHuntProjected(hunt, contract.ID); err != nil {
			log.Printf("Warning: failed to publish hunt.projected for %s: %v", hunt.ID, err)
		}
	}
	return hunt, nil
}

// applyCompletionFields copies contract data onto the hunt
func applyCompletionFields(hunt *models.Hunt, contract *models.HuntContract, fields completionFields) {
	hunt.ClientEmail = contract.ClientEmail
	if fields.Species != "" {
		hunt.Species = fields.Species
	}
	if fields.Unit != "" {
		hunt.Unit = fields.Unit
	}
	if fields.Weapon != "" {
		hunt.Weapon = fields.Weapon
	}
	if fields.Camp != "" {
		hunt.Camp = fields.Camp
	}
	if fields.HuntCode != "" {
		hunt.HuntCode = fields.HuntCode
	}
	if t, err := time.Parse("2006-01-02", fields.StartDate); err == nil {
		hunt.StartsAt = t
	}
	if t, err := time.Parse("2006-01-02", fields.EndDate); err == nil {
		hunt.EndsAt = t
	}
	if hunt.Title == "" {
		title := fields.Species
		if title == "" {
			title = "Hunt"
		}
		hunt.Title = fmt.Sprintf("%s - %s", title, contract.ClientEmail)
	}
}

// ============================================================================
// Manual scheduling
// ============================================================================

// CreateHuntRequest represents a request to schedule a hunt manually
type CreateHuntRequest struct {
	Title       string     `json:"title" validate:"required"`
	StartsAt    time.Time  `json:"starts_at" validate:"required"`
	EndsAt      time.Time  `json:"ends_at"`
	GuideID     *uuid.UUID `json:"guide_id,omitempty"`
	ClientEmail string     `json:"client_email,omitempty"`
	Species     string     `json:"species,omitempty"`
	Unit        string     `json:"unit,omitempty"`
	Weapon      string     `json:"weapon,omitempty"`
	Camp        string     `json:"camp,omitempty"`
	HuntCode    string     `json:"hunt_code,omitempty"`
	Visibility  string     `json:"visibility,omitempty"`
	Notes       string     `json:"notes,omitempty"`
}

// CreateHunt schedules a hunt manually. Admin-only.
func (s *CalendarService) CreateHunt(ctx context.Context, tc TenantContext, req *CreateHuntRequest) (*models.Hunt, error) {
	if err := RequireRole(tc, models.RoleOwner, models.RoleAdmin); err != nil {
		return nil, err
	}
	if req.Title == "" {
		return nil, NewValidationError("title", "title is required")
	}
	if req.StartsAt.IsZero() {
		return nil, NewValidationError("starts_at", "start time is required")
	}

	visibility := req.Visibility
	if visibility == "" {
		visibility = models.HuntVisibilityMembers
	}

	hunt := &models.Hunt{
		OutfitterID: tc.OutfitterID,
		Title:       req.Title,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
		GuideID:     req.GuideID,
		ClientEmail: req.ClientEmail,
		Species:     req.Species,
		Unit:        req.Unit,
		Weapon:      req.Weapon,
		Camp:        req.Camp,
		HuntCode:    req.HuntCode,
		Status:      models.HuntStatusScheduled,
		Visibility:  visibility,
		Notes:       req.Notes,
	}
	if err := s.huntRepo.Create(ctx, hunt); err != nil {
		return nil, err
	}
	return hunt, nil
}

// GetHunt retrieves one hunt. Internal-visibility hunts are staff-only.
func (s *CalendarService) GetHunt(ctx context.Context, tc TenantContext, huntID uuid.UUID) (*models.Hunt, error) {
	hunt, err := s.huntRepo.GetByID(ctx, tc.OutfitterID, huntID)
	if err != nil {
		return nil, err
	}
	if hunt.Visibility == models.HuntVisibilityInternal && !tc.IsStaff() {
		return nil, NewAuthorizationError("hunt is not visible to this role")
	}
	return hunt, nil
}

// ListHunts retrieves hunts for the outfitter's calendar. Non-staff roles
// only see hunts visible to them.
func (s *CalendarService) ListHunts(ctx context.Context, tc TenantContext, filters map[string]interface{}, page, pageSize int) ([]models.Hunt, int64, error) {
	if filters == nil {
		filters = map[string]interface{}{}
	}
	switch tc.Role {
	case models.RoleOwner, models.RoleAdmin:
		// staff see everything
	case models.RoleGuide:
		filters["guide_id"] = tc.UserID
	case models.RoleClient:
		filters["client_email"] = tc.Email
	default:
		filters["visibility"] = models.HuntVisibilityMembers
	}
	return s.huntRepo.List(ctx, tc.OutfitterID, filters, page, pageSize)
}

// AssignGuide assigns a guide to a hunt and promotes it out of the
// pending_guide_assignment holding state. Admin-only.
func (s *CalendarService) AssignGuide(ctx context.Context, tc TenantContext, huntID, guideID uuid.UUID) (*models.Hunt, error) {
	if err := RequireRole(tc, models.RoleOwner, models.RoleAdmin); err != nil {
		return nil, err
	}

	hunt, err := s.huntRepo.GetByID(ctx, tc.OutfitterID, huntID)
	if err != nil {
		return nil, err
	}

	hunt.GuideID = &guideID
	if hunt.Status == models.HuntStatusPendingGuide {
		hunt.Status = models.HuntStatusScheduled
		hunt.Visibility = models.HuntVisibilityMembers
	}
	if err := s.huntRepo.Update(ctx, hunt); err != nil {
		return nil, err
	}
	return hunt, nil
}
