package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"blockpad/internal/domain"
)

// DocumentStore implements domain.DocumentStore on a SQL database.
type DocumentStore struct {
	db *DB
}

func NewDocumentStore(db *DB) *DocumentStore {
	return &DocumentStore{db: db}
}

func (s *DocumentStore) CreateDocument(d *domain.SavedDocument) error {
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now
	_, err := s.db.conn.Exec(
		s.db.rebind(`INSERT INTO documents (id, title, markup, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`),
		d.ID, d.Title, d.Markup, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

func (s *DocumentStore) GetDocument(id string) (*domain.SavedDocument, error) {
	d := &domain.SavedDocument{}
	err := s.db.conn.QueryRow(
		s.db.rebind(`SELECT id, title, markup, created_at, updated_at FROM documents WHERE id = ?`), id,
	).Scan(&d.ID, &d.Title, &d.Markup, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get document %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return d, nil
}

// ListDocuments returns documents without their markup, most recently
// updated first.
func (s *DocumentStore) ListDocuments() ([]domain.SavedDocument, error) {
	rows, err := s.db.conn.Query(`SELECT id, title, created_at, updated_at FROM documents ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.SavedDocument
	for rows.Next() {
		var d domain.SavedDocument
		if err := rows.Scan(&d.ID, &d.Title, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (s *DocumentStore) UpdateDocument(d *domain.SavedDocument) error {
	d.UpdatedAt = time.Now().UTC()
	res, err := s.db.conn.Exec(
		s.db.rebind(`UPDATE documents SET title = ?, markup = ?, updated_at = ? WHERE id = ?`),
		d.Title, d.Markup, d.UpdatedAt, d.ID,
	)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update document %s: %w", d.ID, ErrNotFound)
	}
	return nil
}

func (s *DocumentStore) DeleteDocument(id string) error {
	_, err := s.db.conn.Exec(s.db.rebind(`DELETE FROM documents WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}
