package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"campaignForgeAPI/internal/apperr"
	"campaignForgeAPI/internal/template"
)

func (s *Store) GetTemplate(ctx context.Context, id uuid.UUID) (*template.Template, error) {
	query := `
	SELECT id, name, description, category, difficulty, created_at
	FROM templates
	WHERE id = $1
	`

	tpl := &template.Template{}
	err := s.db.QueryRow(ctx, query, id).Scan(
		&tpl.ID,
		&tpl.Name,
		&tpl.Description,
		&tpl.Category,
		&tpl.Difficulty,
		&tpl.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFoundf("template %s", id)
		}
		return nil, fmt.Errorf("failed to get template: %w", err)
	}

	taskQuery := `
	SELECT id, name, rules, validation_type, dependency_type, start_date, end_date
	FROM template_tasks
	WHERE template_id = $1
	ORDER BY position
	`
	rows, err := s.db.Query(ctx, taskQuery, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list template tasks: %w", err)
	}
	defer rows.Close()

	taskIDs := make(map[string]uuid.UUID)
	for rows.Next() {
		def := &template.TaskDefinition{}
		var taskID uuid.UUID
		err := rows.Scan(&taskID, &def.Name, &def.Rules, &def.ValidationType, &def.DependencyType, &def.StartDate, &def.EndDate)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template task: %w", err)
		}
		taskIDs[def.Name] = taskID
		tpl.Tasks = append(tpl.Tasks, def)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating template tasks: %w", err)
	}

	for _, def := range tpl.Tasks {
		taskID := taskIDs[def.Name]

		achQuery := `
		SELECT name, description, points, icon, instructions
		FROM template_achievements
		WHERE template_task_id = $1
		ORDER BY name
		`
		achRows, err := s.db.Query(ctx, achQuery, taskID)
		if err != nil {
			return nil, fmt.Errorf("failed to list template achievements: %w", err)
		}
		for achRows.Next() {
			a := &template.AchievementDefinition{}
			if err := achRows.Scan(&a.Name, &a.Description, &a.Points, &a.Icon, &a.Instructions); err != nil {
				achRows.Close()
				return nil, fmt.Errorf("failed to scan template achievement: %w", err)
			}
			def.Achievements = append(def.Achievements, a)
		}
		if err = achRows.Err(); err != nil {
			achRows.Close()
			return nil, fmt.Errorf("error iterating template achievements: %w", err)
		}
		achRows.Close()

		depRows, err := s.db.Query(ctx,
			`SELECT depends_on_name FROM template_dependencies WHERE template_task_id = $1`, taskID)
		if err != nil {
			return nil, fmt.Errorf("failed to list template dependencies: %w", err)
		}
		for depRows.Next() {
			var name string
			if err := depRows.Scan(&name); err != nil {
				depRows.Close()
				return nil, fmt.Errorf("failed to scan template dependency: %w", err)
			}
			def.DependsOn = append(def.DependsOn, name)
		}
		if err = depRows.Err(); err != nil {
			depRows.Close()
			return nil, fmt.Errorf("error iterating template dependencies: %w", err)
		}
		depRows.Close()
	}

	return tpl, nil
}

// CreateTemplate writes a template and its task definitions in one
// transaction. Used both for fresh templates and for Duplicate copies.
func (s *Store) CreateTemplate(ctx context.Context, tpl *template.Template) (*template.Template, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO templates (id, name, description, category, difficulty, created_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())
		 RETURNING created_at`,
		tpl.ID, tpl.Name, tpl.Description, tpl.Category, tpl.Difficulty,
	).Scan(&tpl.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert template: %w", err)
	}

	for position, def := range tpl.Tasks {
		taskID := uuid.New()
		_, err = tx.Exec(ctx,
			`INSERT INTO template_tasks (id, template_id, name, rules, validation_type, dependency_type, start_date, end_date, position)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			taskID, tpl.ID, def.Name, def.Rules, def.ValidationType, def.DependencyType, def.StartDate, def.EndDate, position,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert template task %q: %w", def.Name, err)
		}

		for _, a := range def.Achievements {
			_, err = tx.Exec(ctx,
				`INSERT INTO template_achievements (id, template_task_id, name, description, points, icon, instructions)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				uuid.New(), taskID, a.Name, a.Description, a.Points, a.Icon, a.Instructions,
			)
			if err != nil {
				return nil, fmt.Errorf("failed to insert template achievement %q: %w", a.Name, err)
			}
		}

		for _, depName := range def.DependsOn {
			_, err = tx.Exec(ctx,
				`INSERT INTO template_dependencies (template_task_id, depends_on_name) VALUES ($1, $2)`,
				taskID, depName,
			)
			if err != nil {
				return nil, fmt.Errorf("failed to insert template dependency %q: %w", depName, err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit template: %w", err)
	}

	return tpl, nil
}
