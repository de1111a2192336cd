package template

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/jwalitptl/notify-engine/internal/model"
	"github.com/jwalitptl/notify-engine/internal/repository"
	"github.com/jwalitptl/notify-engine/pkg/logger"
)

var tokenPattern = regexp.MustCompile(`\{([a-zA-Z0-9_]+)\}`)

// Default bodies used when a tenant has not defined a template for a
// scanner trigger.
var defaultBodies = map[model.TriggerType]string{
	model.TriggerBirthday:     "Happy birthday, {name}! Wishing you a great year ahead.",
	model.TriggerExpiryBefore: "Hi {name}, your {plan} plan expires on {end_date}. Renew now to keep your access.",
	model.TriggerExpiryOn:     "Hi {name}, your {plan} plan expires today. Renew now to avoid interruption.",
	model.TriggerExpiryAfter:  "Hi {name}, your {plan} plan expired on {end_date}. Renew today to pick up where you left off.",
}

type Service struct {
	repo   repository.TemplateRepository
	cache  *gocache.Cache
	logger *logger.Logger
}

func NewService(repo repository.TemplateRepository, logger *logger.Logger) *Service {
	return &Service{
		repo:   repo,
		cache:  gocache.New(5*time.Minute, 10*time.Minute),
		logger: logger,
	}
}

// Render substitutes {key} tokens with values from extra first, then the
// client's fields, and finally the empty string. Unresolved tokens never
// fail a render; a half-populated subject must not block delivery.
func Render(template string, client *model.Client, extra map[string]string) string {
	return tokenPattern.ReplaceAllStringFunc(template, func(token string) string {
		key := strings.Trim(token, "{}")
		if v, ok := extra[key]; ok {
			return v
		}
		if client != nil {
			if v, ok := clientField(client, key); ok {
				return v
			}
		}
		return ""
	})
}

func clientField(c *model.Client, key string) (string, bool) {
	switch key {
	case "name", "client_name":
		return c.Name, true
	case "first_name":
		parts := strings.Fields(c.Name)
		if len(parts) == 0 {
			return "", true
		}
		return parts[0], true
	case "phone":
		return c.Phone, true
	case "whatsapp":
		return c.WhatsApp, true
	case "email":
		return c.Email, true
	case "date_of_birth":
		if c.DateOfBirth == nil {
			return "", true
		}
		return c.DateOfBirth.Format(time.DateOnly), true
	}
	return "", false
}

func cacheKey(orgID uuid.UUID, name string) string {
	return orgID.String() + ":" + name
}

// Get loads a tenant template by name through a short-lived cache. A run
// touching hundreds of subjects resolves each template once.
func (s *Service) Get(ctx context.Context, orgID uuid.UUID, name string) (*model.MessageTemplate, error) {
	key := cacheKey(orgID, name)
	if cached, ok := s.cache.Get(key); ok {
		return cached.(*model.MessageTemplate), nil
	}

	tmpl, err := s.repo.Get(ctx, orgID, name)
	if err != nil {
		return nil, err
	}

	s.cache.SetDefault(key, tmpl)
	return tmpl, nil
}

// BodyForTrigger returns the tenant's template body for a scanner trigger,
// falling back to the built-in default when none is defined.
func (s *Service) BodyForTrigger(ctx context.Context, orgID uuid.UUID, trigger model.TriggerType) string {
	tmpl, err := s.Get(ctx, orgID, string(trigger))
	if err == nil {
		return tmpl.Body
	}
	return defaultBodies[trigger]
}

func (s *Service) Create(ctx context.Context, tmpl *model.MessageTemplate) error {
	if err := s.validate(tmpl); err != nil {
		return fmt.Errorf("invalid template: %w", err)
	}

	tmpl.ID = uuid.New()
	if err := s.repo.Create(ctx, tmpl); err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}
	return nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*model.MessageTemplate, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, orgID uuid.UUID) ([]*model.MessageTemplate, error) {
	return s.repo.List(ctx, orgID)
}

func (s *Service) Update(ctx context.Context, tmpl *model.MessageTemplate) error {
	if err := s.validate(tmpl); err != nil {
		return fmt.Errorf("invalid template: %w", err)
	}

	if err := s.repo.Update(ctx, tmpl); err != nil {
		return fmt.Errorf("failed to update template: %w", err)
	}
	s.cache.Delete(cacheKey(tmpl.OrganizationID, tmpl.Name))
	return nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	tmpl, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get template: %w", err)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	s.cache.Delete(cacheKey(tmpl.OrganizationID, tmpl.Name))
	return nil
}

func (s *Service) validate(tmpl *model.MessageTemplate) error {
	if tmpl.OrganizationID == uuid.Nil {
		return fmt.Errorf("organization ID is required")
	}
	if tmpl.Name == "" {
		return fmt.Errorf("name is required")
	}
	if tmpl.Body == "" {
		return fmt.Errorf("body is required")
	}
	return nil
}
