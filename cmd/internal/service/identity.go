package service

import (
	"context"
	"errors"
	"fmt"
	"perdecomp/cmd/internal/domain/entity"
	"perdecomp/cmd/internal/domain/sqlite/repository"
	"perdecomp/cmd/internal/utils"
	"perdecomp/cmd/internal/utils/cnpj"
	"sync"

	"github.com/labstack/gommon/log"
)

// ErrUnresolvedIdentity is returned when neither the client id nor the CNPJ
// of a request leads to a company.
var ErrUnresolvedIdentity = errors.New("identity cannot be resolved")

type ClientRepository interface {
	FindByCNPJ(ctx context.Context, doc string) (*entity.Client, error)
	FindByID(ctx context.Context, id string) (*entity.Client, error)
	NextID(ctx context.Context) (string, error)
	Create(ctx context.Context, c *entity.Client) error
	UpdateName(ctx context.Context, id, name string) error
}

// ClientReassigner moves rows stored under one client id to another.
type ClientReassigner interface {
	ReassignClient(ctx context.Context, from, to string) (int, error)
}

// Identity is the canonical owner of a lookup.
type Identity struct {
	ClientID string
	CNPJ     string
	Name     string
	// Created is set when the client was registered by this resolution.
	Created bool
	// Reconciled holds the placeholder id whose rows were moved to ClientID.
	Reconciled string
}

// IdentityResolver maps a CNPJ to its canonical CLT-#### client id,
// registering new clients as needed. All writes go through one mutex so two
// lookups of a new company cannot allocate two ids.
type IdentityResolver struct {
	mu          sync.Mutex
	clients     ClientRepository
	reassigners []ClientReassigner
}

func NewIdentityResolver(clients ClientRepository, reassigners ...ClientReassigner) *IdentityResolver {
	return &IdentityResolver{clients: clients, reassigners: reassigners}
}

// Resolve returns the canonical identity for a write.
//
// A canonical client id supplied by the caller is kept, and registered if the
// client table does not know it. An empty or placeholder id is replaced by
// the id registered for the CNPJ; rows stored under the placeholder are moved
// to it.
func (r *IdentityResolver) Resolve(ctx context.Context, clientID, doc, name string) (Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if doc != "" {
		doc = cnpj.Normalize(doc)
	}

	if doc == "" {
		return r.resolveByID(ctx, clientID, name)
	}

	if clientID != "" && !repository.IsPlaceholderID(clientID) {
		return r.resolveExplicit(ctx, clientID, doc, name)
	}

	ident, err := r.lookupOrCreate(ctx, doc, name)
	if err != nil {
		return Identity{}, err
	}

	if repository.IsPlaceholderID(clientID) {
		r.reconcile(ctx, clientID, ident.ClientID)
		ident.Reconciled = clientID
	}
	return ident, nil
}

// ReconcilePlaceholder moves everything stored under a placeholder id to the
// canonical id of its CNPJ.
func (r *IdentityResolver) ReconcilePlaceholder(ctx context.Context, placeholder, doc string) (Identity, error) {
	if !repository.IsPlaceholderID(placeholder) {
		return Identity{}, fmt.Errorf("%q is not a placeholder id", placeholder)
	}
	if !cnpj.IsValid(doc) {
		return Identity{}, ErrUnresolvedIdentity
	}
	return r.Resolve(ctx, placeholder, doc, "")
}

// Rename stores a company name for a client that has none.
func (r *IdentityResolver) Rename(ctx context.Context, clientID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clients.UpdateName(ctx, clientID, name)
}

func (r *IdentityResolver) resolveByID(ctx context.Context, clientID, name string) (Identity, error) {
	if clientID == "" {
		return Identity{}, ErrUnresolvedIdentity
	}

	c, err := r.clients.FindByID(ctx, clientID)
	if err != nil {
		return Identity{}, err
	}
	if c == nil || !cnpj.IsValid(c.CNPJ) {
		return Identity{}, ErrUnresolvedIdentity
	}
	return Identity{ClientID: c.ID, CNPJ: cnpj.Normalize(c.CNPJ), Name: firstNonEmpty(name, c.Name)}, nil
}

func (r *IdentityResolver) resolveExplicit(ctx context.Context, clientID, doc, name string) (Identity, error) {
	c, err := r.clients.FindByID(ctx, clientID)
	if err != nil {
		return Identity{}, err
	}

	if c == nil {
		err = r.clients.Create(ctx, &entity.Client{ID: clientID, CNPJ: doc, Name: name, CreatedAt: utils.NowISO()})
		if err != nil {
			return Identity{}, err
		}
		return Identity{ClientID: clientID, CNPJ: doc, Name: name, Created: true}, nil
	}

	if cnpj.Normalize(c.CNPJ) != doc {
		log.Warnf("client %s is registered with CNPJ %s but was looked up with %s", clientID, c.CNPJ, doc)
	}
	return Identity{ClientID: clientID, CNPJ: doc, Name: firstNonEmpty(name, c.Name)}, nil
}

func (r *IdentityResolver) lookupOrCreate(ctx context.Context, doc, name string) (Identity, error) {
	c, err := r.clients.FindByCNPJ(ctx, doc)
	if err != nil {
		return Identity{}, err
	}
	if c != nil {
		return Identity{ClientID: c.ID, CNPJ: doc, Name: firstNonEmpty(name, c.Name)}, nil
	}

	id, err := r.clients.NextID(ctx)
	if err != nil {
		return Identity{}, err
	}
	err = r.clients.Create(ctx, &entity.Client{ID: id, CNPJ: doc, Name: name, CreatedAt: utils.NowISO()})
	if err != nil {
		return Identity{}, err
	}

	log.Infof("registered client %s for CNPJ %s", id, doc)
	return Identity{ClientID: id, CNPJ: doc, Name: name, Created: true}, nil
}

func (r *IdentityResolver) reconcile(ctx context.Context, from, to string) {
	for _, re := range r.reassigners {
		n, err := re.ReassignClient(ctx, from, to)
		if err != nil {
			log.Errorf("failed to move rows from %s to %s: %v", from, to, err)
			continue
		}
		if n > 0 {
			log.Infof("moved %d rows from %s to %s", n, from, to)
		}
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
