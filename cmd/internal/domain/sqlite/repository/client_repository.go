package repository

import (
	"context"
	"fmt"
	"perdecomp/cmd/internal/domain/entity"
	"perdecomp/cmd/internal/utils/cnpj"
	"strconv"
	"strings"
)

const (
	ClientIDPrefix      = "CLT-"
	PlaceholderIDPrefix = "COMP-"
)

var clientColumns = []string{"Cliente_ID", "CNPJ", "Nome", "Created_At"}

type DefaultClientRepository struct {
	store *DefaultTableStore
}

func NewClientRepository(store *DefaultTableStore) *DefaultClientRepository {
	return &DefaultClientRepository{store: store}
}

func (r *DefaultClientRepository) List(ctx context.Context) ([]*entity.Client, error) {
	t, err := r.store.ReadRows(ctx, ClientSheet)
	if err != nil {
		return nil, err
	}

	clients := make([]*entity.Client, 0, len(t.Rows))
	for _, row := range t.Rows {
		clients = append(clients, &entity.Client{
			ID:        row.Get("Cliente_ID"),
			CNPJ:      row.Get("CNPJ"),
			Name:      row.Get("Nome"),
			CreatedAt: row.Get("Created_At"),
		})
	}
	return clients, nil
}

// FindByCNPJ returns the first client registered under the CNPJ, or nil.
func (r *DefaultClientRepository) FindByCNPJ(ctx context.Context, doc string) (*entity.Client, error) {
	clients, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	want := cnpj.Normalize(doc)
	for _, c := range clients {
		if cnpj.Normalize(c.CNPJ) == want {
			return c, nil
		}
	}
	return nil, nil
}

func (r *DefaultClientRepository) FindByID(ctx context.Context, id string) (*entity.Client, error) {
	clients, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range clients {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, nil
}

// NextID returns the id following the highest CLT-#### in use.
func (r *DefaultClientRepository) NextID(ctx context.Context) (string, error) {
	clients, err := r.List(ctx)
	if err != nil {
		return "", err
	}

	highest := 0
	for _, c := range clients {
		if n, ok := ClientSequence(c.ID); ok && n > highest {
			highest = n
		}
	}
	return fmt.Sprintf("%s%04d", ClientIDPrefix, highest+1), nil
}

func (r *DefaultClientRepository) Create(ctx context.Context, c *entity.Client) error {
	if _, err := r.store.EnsureColumns(ctx, ClientSheet, clientColumns); err != nil {
		return err
	}
	_, err := r.store.AppendRow(ctx, ClientSheet, map[string]string{
		"Cliente_ID": c.ID,
		"CNPJ":       cnpj.Normalize(c.CNPJ),
		"Nome":       c.Name,
		"Created_At": c.CreatedAt,
	})
	return err
}

func (r *DefaultClientRepository) UpdateName(ctx context.Context, id, name string) error {
	_, err := upsertRow(ctx, r.store, ClientSheet, clientColumns, "Cliente_ID", id, map[string]string{
		"Cliente_ID": id,
		"Nome":       name,
	})
	return err
}

// ClientSequence extracts the number of a canonical CLT-#### id.
func ClientSequence(id string) (int, bool) {
	if !strings.HasPrefix(id, ClientIDPrefix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(id, ClientIDPrefix))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func IsPlaceholderID(id string) bool {
	return strings.HasPrefix(id, PlaceholderIDPrefix)
}
