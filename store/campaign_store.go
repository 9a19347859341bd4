package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"campaignForgeAPI/internal/apperr"
	"campaignForgeAPI/internal/campaign"
	"campaignForgeAPI/internal/template"
)

// InstantiateCampaign writes the campaign row, one task row (with its
// achievements) per definition, the ordering join, and the dependency edges,
// in a single transaction. A failure anywhere leaves no orphan rows.
func (s *Store) InstantiateCampaign(ctx context.Context, c *campaign.Campaign, defs []*template.TaskDefinition) (*campaign.Campaign, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	campaignQuery := `
	INSERT INTO campaigns (id, name, description, category, difficulty, start_date, end_date, is_active, max_participants, estimated_hours, total_points, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
	RETURNING created_at, updated_at
	`
	err = tx.QueryRow(ctx, campaignQuery,
		c.ID, c.Name, c.Description, c.Category, c.Difficulty,
		c.StartDate, c.EndDate, c.IsActive, c.MaxParticipants,
		c.EstimatedHours, c.TotalPoints,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert campaign: %w", err)
	}

	idsByName := make(map[string]uuid.UUID, len(defs))
	c.Tasks = make([]*campaign.Task, 0, len(defs))

	for position, def := range defs {
		task := &campaign.Task{
			ID:             uuid.New(),
			CampaignID:     c.ID,
			Name:           def.Name,
			Rules:          def.Rules,
			ValidationType: def.ValidationType,
			DependencyType: def.DependencyType,
			Position:       position,
			StartDate:      def.StartDate,
			EndDate:        def.EndDate,
		}
		idsByName[def.Name] = task.ID

		taskQuery := `
		INSERT INTO tasks (id, name, rules, validation_type, dependency_type, start_date, end_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING created_at
		`
		err = tx.QueryRow(ctx, taskQuery,
			task.ID, task.Name, task.Rules, task.ValidationType,
			task.DependencyType, task.StartDate, task.EndDate,
		).Scan(&task.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to insert task %q: %w", def.Name, err)
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO campaign_tasks (campaign_id, task_id, position) VALUES ($1, $2, $3)`,
			c.ID, task.ID, position,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert campaign task join: %w", err)
		}

		for _, a := range def.Achievements {
			ach := &campaign.Achievement{
				ID:           uuid.New(),
				TaskID:       task.ID,
				Name:         a.Name,
				Description:  a.Description,
				Points:       a.Points,
				Icon:         a.Icon,
				Instructions: a.Instructions,
			}
			_, err = tx.Exec(ctx,
				`INSERT INTO achievements (id, task_id, name, description, points, icon, instructions) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				ach.ID, ach.TaskID, ach.Name, ach.Description, ach.Points, ach.Icon, ach.Instructions,
			)
			if err != nil {
				return nil, fmt.Errorf("failed to insert achievement %q: %w", a.Name, err)
			}
			task.Achievements = append(task.Achievements, ach)
		}

		c.Tasks = append(c.Tasks, task)
	}

	// Dependency names were validated against the definition list, so every
	// lookup hits.
	for i, def := range defs {
		task := c.Tasks[i]
		for _, depName := range def.DependsOn {
			depID := idsByName[depName]
			_, err = tx.Exec(ctx,
				`INSERT INTO task_dependencies (task_id, depends_on_task_id) VALUES ($1, $2)`,
				task.ID, depID,
			)
			if err != nil {
				return nil, fmt.Errorf("failed to insert dependency %q -> %q: %w", def.Name, depName, err)
			}
			task.Dependencies = append(task.Dependencies, &campaign.Dependency{
				TaskID:          task.ID,
				DependsOnTaskID: depID,
				DependsOnName:   depName,
			})
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit campaign: %w", err)
	}

	return c, nil
}

func (s *Store) GetCampaign(ctx context.Context, id uuid.UUID) (*campaign.Campaign, error) {
	query := `
	SELECT id, name, description, category, difficulty, start_date, end_date, is_active, max_participants, estimated_hours, total_points, created_at, updated_at
	FROM campaigns
	WHERE id = $1
	`

	c := &campaign.Campaign{}
	err := s.db.QueryRow(ctx, query, id).Scan(
		&c.ID,
		&c.Name,
		&c.Description,
		&c.Category,
		&c.Difficulty,
		&c.StartDate,
		&c.EndDate,
		&c.IsActive,
		&c.MaxParticipants,
		&c.EstimatedHours,
		&c.TotalPoints,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFoundf("campaign %s", id)
		}
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}

	return c, nil
}

// ListCampaignTasks returns the campaign's tasks in join order, with
// achievements and dependency edges loaded.
func (s *Store) ListCampaignTasks(ctx context.Context, campaignID uuid.UUID) ([]*campaign.Task, error) {
	query := `
	SELECT t.id, ct.campaign_id, t.name, t.rules, t.validation_type, t.dependency_type, ct.position, t.start_date, t.end_date, t.created_at
	FROM tasks t
	INNER JOIN campaign_tasks ct ON ct.task_id = t.id
	WHERE ct.campaign_id = $1
	ORDER BY ct.position
	`

	rows, err := s.db.Query(ctx, query, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaign tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*campaign.Task
	byID := make(map[uuid.UUID]*campaign.Task)
	for rows.Next() {
		t := &campaign.Task{}
		err := rows.Scan(
			&t.ID,
			&t.CampaignID,
			&t.Name,
			&t.Rules,
			&t.ValidationType,
			&t.DependencyType,
			&t.Position,
			&t.StartDate,
			&t.EndDate,
			&t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
		byID[t.ID] = t
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}
	if len(tasks) == 0 {
		return tasks, nil
	}

	taskIDs := make([]uuid.UUID, 0, len(tasks))
	for _, t := range tasks {
		taskIDs = append(taskIDs, t.ID)
	}

	achQuery := `
	SELECT id, task_id, name, description, points, icon, instructions
	FROM achievements
	WHERE task_id = ANY($1)
	ORDER BY name
	`
	achRows, err := s.db.Query(ctx, achQuery, taskIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}
	defer achRows.Close()

	for achRows.Next() {
		a := &campaign.Achievement{}
		err := achRows.Scan(&a.ID, &a.TaskID, &a.Name, &a.Description, &a.Points, &a.Icon, &a.Instructions)
		if err != nil {
			return nil, fmt.Errorf("failed to scan achievement: %w", err)
		}
		if t, ok := byID[a.TaskID]; ok {
			t.Achievements = append(t.Achievements, a)
		}
	}
	if err = achRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating achievements: %w", err)
	}

	depQuery := `
	SELECT d.task_id, d.depends_on_task_id, t.name
	FROM task_dependencies d
	INNER JOIN tasks t ON t.id = d.depends_on_task_id
	WHERE d.task_id = ANY($1)
	`
	depRows, err := s.db.Query(ctx, depQuery, taskIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list dependencies: %w", err)
	}
	defer depRows.Close()

	for depRows.Next() {
		d := &campaign.Dependency{}
		err := depRows.Scan(&d.TaskID, &d.DependsOnTaskID, &d.DependsOnName)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dependency: %w", err)
		}
		if t, ok := byID[d.TaskID]; ok {
			t.Dependencies = append(t.Dependencies, d)
		}
	}
	if err = depRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dependencies: %w", err)
	}

	return tasks, nil
}

// GetCampaignTask loads one task of a campaign with achievements and edges.
func (s *Store) GetCampaignTask(ctx context.Context, campaignID, taskID uuid.UUID) (*campaign.Task, error) {
	tasks, err := s.ListCampaignTasks(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	for _, t := range tasks {
		if t.ID == taskID {
			return t, nil
		}
	}
	return nil, apperr.NotFoundf("task %s in campaign %s", taskID, campaignID)
}

// ApprovedTaskIDs returns the set of tasks the user has an approved
// submission for within the campaign.
func (s *Store) ApprovedTaskIDs(ctx context.Context, userID, campaignID uuid.UUID) (map[uuid.UUID]bool, error) {
	query := `
	SELECT task_id
	FROM submissions
	WHERE user_id = $1 AND campaign_id = $2 AND status = 'approved'
	`

	rows, err := s.db.Query(ctx, query, userID, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to list approved tasks: %w", err)
	}
	defer rows.Close()

	approved := make(map[uuid.UUID]bool)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan approved task: %w", err)
		}
		approved[id] = true
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating approved tasks: %w", err)
	}

	return approved, nil
}
