package entity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrLeadNotFound = errors.New("lead not found")

type Lead struct {
	ID        string            `json:"id"`
	OwnerID   string            `json:"-"`
	Name      string            `json:"name"`
	Email     string            `json:"email"`
	Phone     string            `json:"phone,omitempty"`
	Company   string            `json:"company,omitempty"`
	Info      map[string]string `json:"info,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// LeadSnapshot is the copy of a lead stored inside a stage. It is taken at
// insertion time and is not kept in sync with the directory.
type LeadSnapshot struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Company string `json:"company,omitempty"`
}

func NewLead(ownerID, name, email, phone, company string, info map[string]string) (*Lead, error) {
	now := time.Now().UTC()
	lead := &Lead{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Name:      strings.TrimSpace(name),
		Email:     strings.TrimSpace(email),
		Phone:     phone,
		Company:   company,
		Info:      info,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := lead.Validate(); err != nil {
		return nil, err
	}

	return lead, nil
}

func (l *Lead) Validate() error {
	if l.Name == "" {
		return errors.New("name is required")
	}
	if l.Email == "" {
		return errors.New("email is required")
	}
	return nil
}

func (l Lead) Snapshot() LeadSnapshot {
	return LeadSnapshot{
		ID:      l.ID,
		Name:    l.Name,
		Email:   l.Email,
		Phone:   l.Phone,
		Company: l.Company,
	}
}

// Differs reports whether the snapshot no longer mirrors the lead.
func (s LeadSnapshot) Differs(l Lead) bool {
	return s != l.Snapshot()
}

type LeadRepositoryInterface interface {
	List(ctx context.Context, ownerID string) ([]Lead, error)
	FindByID(ctx context.Context, ownerID, id string) (*Lead, error)
	Create(ctx context.Context, lead *Lead) error
	Update(ctx context.Context, lead *Lead) error
	Delete(ctx context.Context, ownerID, id string) (int64, error)
}
