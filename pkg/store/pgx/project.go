package pgx

import (
	"context"
	"errors"
	"fmt"

	pgxv5 "github.com/jackc/pgx/v5"

	"github.com/lattice-graph/lattice/pkg/common"
)

// ErrProjectNotFound is returned when a project id does not exist.
var ErrProjectNotFound = errors.New("project not found")

func (s *GraphDBStorage) CreateProject(ctx context.Context, project common.Project) error {
	status := project.Status
	if status == "" {
		status = common.ProjectStatusPending
	}

	_, err := s.conn.Exec(ctx,
		`INSERT INTO projects (id, name, status) VALUES ($1, $2, $3)`,
		project.ID, project.Name, string(status),
	)
	if err != nil {
		return fmt.Errorf("failed to create project %s: %w", project.ID, err)
	}
	return nil
}

func (s *GraphDBStorage) GetProject(ctx context.Context, id string) (common.Project, error) {
	var project common.Project
	var status string

	err := s.conn.QueryRow(ctx,
		`SELECT id, name, status FROM projects WHERE id = $1`,
		id,
	).Scan(&project.ID, &project.Name, &status)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return common.Project{}, ErrProjectNotFound
	}
	if err != nil {
		return common.Project{}, fmt.Errorf("failed to get project %s: %w", id, err)
	}

	project.Status = common.ProjectStatus(status)
	return project, nil
}

func (s *GraphDBStorage) SetProjectStatus(ctx context.Context, id string, status common.ProjectStatus) error {
	tag, err := s.conn.Exec(ctx,
		`UPDATE projects SET status = $2 WHERE id = $1`,
		id, string(status),
	)
	if err != nil {
		return fmt.Errorf("failed to update project %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProjectNotFound
	}
	return nil
}

func (s *GraphDBStorage) DeleteProject(ctx context.Context, id string) error {
	_, err := s.conn.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project %s: %w", id, err)
	}
	return nil
}
