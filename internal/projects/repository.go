package projects

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	Create(ctx context.Context, p *Project, todos []Todo, notes []Note) error
	GetByID(ctx context.Context, id uuid.UUID) (*Project, error)
	HasAccess(ctx context.Context, projectID, userID uuid.UUID) (bool, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]Summary, error)
	Rename(ctx context.Context, id uuid.UUID, name string) error
	SetArchived(ctx context.Context, id uuid.UUID, archived bool) error
	Delete(ctx context.Context, id uuid.UUID) error
	Touch(ctx context.Context, id uuid.UUID, at time.Time) error

	ListTodos(ctx context.Context, projectID uuid.UUID) ([]Todo, error)
	CreateTodo(ctx context.Context, t *Todo) error
	UpdateTodo(ctx context.Context, projectID, todoID uuid.UUID, content *string, completed *bool) (*Todo, error)
	DeleteTodo(ctx context.Context, projectID, todoID uuid.UUID) error

	ListNotes(ctx context.Context, projectID uuid.UUID) ([]Note, error)
	ListNoteContents(ctx context.Context, projectID uuid.UUID) ([]string, error)
	CreateNote(ctx context.Context, n *Note) error
	UpdateNote(ctx context.Context, projectID, noteID uuid.UUID, content string) (*Note, error)
	DeleteNote(ctx context.Context, projectID, noteID uuid.UUID) error

	AddShare(ctx context.Context, projectID, userID uuid.UUID) error
	RemoveShare(ctx context.Context, projectID, userID uuid.UUID) error
	ListCollaborators(ctx context.Context, projectIDs []uuid.UUID) (map[uuid.UUID][]Collaborator, error)

	Search(ctx context.Context, userID uuid.UUID, q string, includeArchived bool, limit int) (*SearchResults, error)

	AddChatMessages(ctx context.Context, msgs []ChatMessage) error
	ListChatMessages(ctx context.Context, projectID uuid.UUID, limit int) ([]ChatMessage, error)

	FindResurfacingCandidates(ctx context.Context, openedBefore, remindedBefore time.Time) ([]Project, error)
	MarkReminded(ctx context.Context, id uuid.UUID, at time.Time) error
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

const projectColumns = `p.id, p.name, p.owner_id, p.is_archived, p.last_opened_at, p.last_reminded_at, p.created_at, p.updated_at`

// accessPredicate matches projects owned by or shared with the user bound to $1.
const accessPredicate = `(p.owner_id = $1 OR EXISTS (
	SELECT 1 FROM project_shares s WHERE s.project_id = p.id AND s.user_id = $1))`

func scanProject(row pgx.Row, extra ...any) (*Project, error) {
	p := &Project{}
	dest := append([]any{&p.ID, &p.Name, &p.OwnerID, &p.IsArchived,
		&p.LastOpenedAt, &p.LastRemindedAt, &p.CreatedAt, &p.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *postgresRepository) Create(ctx context.Context, p *Project, todos []Todo, notes []Note) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning project tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO projects (id, name, owner_id, is_archived, last_opened_at, created_at, updated_at)
		 VALUES ($1, $2, $3, FALSE, $4, $5, $6)`,
		p.ID, p.Name, p.OwnerID, p.LastOpenedAt, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting project: %w", err)
	}

	batch := &pgx.Batch{}
	for _, t := range todos {
		batch.Queue(`INSERT INTO todos (id, project_id, content, position, creator_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $6)`, t.ID, p.ID, t.Content, t.Position, t.CreatorID, t.CreatedAt)
	}
	for _, n := range notes {
		batch.Queue(`INSERT INTO notes (id, project_id, content, position, creator_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $6)`, n.ID, p.ID, n.Content, n.Position, n.CreatorID, n.CreatedAt)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("inserting initial project items: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing project: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Project, error) {
	p, err := scanProject(r.pool.QueryRow(ctx,
		`SELECT `+projectColumns+` FROM projects p WHERE p.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying project by id: %w", err)
	}
	return p, nil
}

func (r *postgresRepository) HasAccess(ctx context.Context, projectID, userID uuid.UUID) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM projects p WHERE p.id = $2 AND `+accessPredicate+`)`,
		userID, projectID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("checking project access: %w", err)
	}
	return ok, nil
}

func (r *postgresRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]Summary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+projectColumns+`,
		        (SELECT COUNT(*) FROM todos t WHERE t.project_id = p.id AND NOT t.is_completed)
		 FROM projects p
		 WHERE `+accessPredicate, userID)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	list := []Summary{}
	for rows.Next() {
		var open int
		p, err := scanProject(rows, &open)
		if err != nil {
			return nil, fmt.Errorf("scanning project row: %w", err)
		}
		list = append(list, Summary{Project: *p, OpenTodos: open, IsOwner: p.OwnedBy(userID)})
	}
	return list, rows.Err()
}

func (r *postgresRepository) Rename(ctx context.Context, id uuid.UUID, name string) error {
	return r.execOne(ctx, ErrNotFound, "renaming project",
		`UPDATE projects SET name = $2, updated_at = NOW() WHERE id = $1`, id, name)
}

func (r *postgresRepository) SetArchived(ctx context.Context, id uuid.UUID, archived bool) error {
	return r.execOne(ctx, ErrNotFound, "archiving project",
		`UPDATE projects SET is_archived = $2, updated_at = NOW() WHERE id = $1`, id, archived)
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.execOne(ctx, ErrNotFound, "deleting project", `DELETE FROM projects WHERE id = $1`, id)
}

// Touch records that the project was opened. last_reminded_at is left alone.
func (r *postgresRepository) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.execOne(ctx, ErrNotFound, "touching project",
		`UPDATE projects SET last_opened_at = $2 WHERE id = $1`, id, at)
}

func (r *postgresRepository) ListTodos(ctx context.Context, projectID uuid.UUID) ([]Todo, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, project_id, content, is_completed, position, creator_id, created_at, updated_at
		 FROM todos WHERE project_id = $1 ORDER BY is_completed, position, created_at`, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing todos: %w", err)
	}
	defer rows.Close()

	list := []Todo{}
	for rows.Next() {
		var t Todo
		if err := rows.Scan(&t.ID, &t.ProjectID, &t.Content, &t.IsCompleted, &t.Position,
			&t.CreatorID, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning todo: %w", err)
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

func (r *postgresRepository) CreateTodo(ctx context.Context, t *Todo) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO todos (id, project_id, content, position, creator_id)
		 VALUES ($1, $2, $3, (SELECT COALESCE(MAX(position), -1) + 1 FROM todos WHERE project_id = $2), $4)
		 RETURNING position, created_at, updated_at`,
		t.ID, t.ProjectID, t.Content, t.CreatorID,
	).Scan(&t.Position, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting todo: %w", err)
	}
	return r.bump(ctx, t.ProjectID)
}

func (r *postgresRepository) UpdateTodo(ctx context.Context, projectID, todoID uuid.UUID, content *string, completed *bool) (*Todo, error) {
	var t Todo
	err := r.pool.QueryRow(ctx,
		`UPDATE todos
		 SET content = COALESCE($3, content),
		     is_completed = COALESCE($4, is_completed),
		     updated_at = NOW()
		 WHERE id = $2 AND project_id = $1
		 RETURNING id, project_id, content, is_completed, position, creator_id, created_at, updated_at`,
		projectID, todoID, content, completed,
	).Scan(&t.ID, &t.ProjectID, &t.Content, &t.IsCompleted, &t.Position, &t.CreatorID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemAbsent
		}
		return nil, fmt.Errorf("updating todo: %w", err)
	}
	return &t, r.bump(ctx, projectID)
}

func (r *postgresRepository) DeleteTodo(ctx context.Context, projectID, todoID uuid.UUID) error {
	if err := r.execOne(ctx, ErrItemAbsent, "deleting todo",
		`DELETE FROM todos WHERE id = $2 AND project_id = $1`, projectID, todoID); err != nil {
		return err
	}
	return r.bump(ctx, projectID)
}

func (r *postgresRepository) ListNotes(ctx context.Context, projectID uuid.UUID) ([]Note, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, project_id, content, position, creator_id, created_at, updated_at
		 FROM notes WHERE project_id = $1 ORDER BY position, created_at`, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing notes: %w", err)
	}
	defer rows.Close()

	list := []Note{}
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.ProjectID, &n.Content, &n.Position,
			&n.CreatorID, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning note: %w", err)
		}
		list = append(list, n)
	}
	return list, rows.Err()
}

func (r *postgresRepository) ListNoteContents(ctx context.Context, projectID uuid.UUID) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT content FROM notes WHERE project_id = $1 ORDER BY position, created_at`, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing note contents: %w", err)
	}
	contents, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scanning note contents: %w", err)
	}
	return contents, nil
}

func (r *postgresRepository) CreateNote(ctx context.Context, n *Note) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO notes (id, project_id, content, position, creator_id)
		 VALUES ($1, $2, $3, (SELECT COALESCE(MAX(position), -1) + 1 FROM notes WHERE project_id = $2), $4)
		 RETURNING position, created_at, updated_at`,
		n.ID, n.ProjectID, n.Content, n.CreatorID,
	).Scan(&n.Position, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting note: %w", err)
	}
	return r.bump(ctx, n.ProjectID)
}

func (r *postgresRepository) UpdateNote(ctx context.Context, projectID, noteID uuid.UUID, content string) (*Note, error) {
	var n Note
	err := r.pool.QueryRow(ctx,
		`UPDATE notes SET content = $3, updated_at = NOW()
		 WHERE id = $2 AND project_id = $1
		 RETURNING id, project_id, content, position, creator_id, created_at, updated_at`,
		projectID, noteID, content,
	).Scan(&n.ID, &n.ProjectID, &n.Content, &n.Position, &n.CreatorID, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemAbsent
		}
		return nil, fmt.Errorf("updating note: %w", err)
	}
	return &n, r.bump(ctx, projectID)
}

func (r *postgresRepository) DeleteNote(ctx context.Context, projectID, noteID uuid.UUID) error {
	if err := r.execOne(ctx, ErrItemAbsent, "deleting note",
		`DELETE FROM notes WHERE id = $2 AND project_id = $1`, projectID, noteID); err != nil {
		return err
	}
	return r.bump(ctx, projectID)
}

func (r *postgresRepository) AddShare(ctx context.Context, projectID, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO project_shares (project_id, user_id) VALUES ($1, $2)
		 ON CONFLICT (project_id, user_id) DO NOTHING`, projectID, userID)
	if err != nil {
		return fmt.Errorf("adding project share: %w", err)
	}
	return nil
}

func (r *postgresRepository) RemoveShare(ctx context.Context, projectID, userID uuid.UUID) error {
	return r.execOne(ctx, ErrItemAbsent, "removing project share",
		`DELETE FROM project_shares WHERE project_id = $1 AND user_id = $2`, projectID, userID)
}

func (r *postgresRepository) ListCollaborators(ctx context.Context, projectIDs []uuid.UUID) (map[uuid.UUID][]Collaborator, error) {
	out := make(map[uuid.UUID][]Collaborator, len(projectIDs))
	if len(projectIDs) == 0 {
		return out, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT s.project_id, u.id, u.email, u.name
		 FROM project_shares s JOIN users u ON u.id = s.user_id
		 WHERE s.project_id = ANY($1)
		 ORDER BY s.created_at`, projectIDs)
	if err != nil {
		return nil, fmt.Errorf("listing collaborators: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var pid uuid.UUID
		var c Collaborator
		if err := rows.Scan(&pid, &c.UserID, &c.Email, &c.Name); err != nil {
			return nil, fmt.Errorf("scanning collaborator: %w", err)
		}
		out[pid] = append(out[pid], c)
	}
	return out, rows.Err()
}

// likePattern escapes LIKE wildcards in q and wraps it for a substring match.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}

func (r *postgresRepository) Search(ctx context.Context, userID uuid.UUID, q string, includeArchived bool, limit int) (*SearchResults, error) {
	pattern := likePattern(q)
	scope := `FROM projects p WHERE ` + accessPredicate + ` AND ($2 OR p.is_archived = FALSE)`

	res := &SearchResults{Projects: []Project{}, Todos: []TodoHit{}, Notes: []NoteHit{}}

	rows, err := r.pool.Query(ctx,
		`SELECT `+projectColumns+` `+scope+` AND p.name ILIKE $3
		 ORDER BY p.last_opened_at DESC LIMIT $4`, userID, includeArchived, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("searching projects: %w", err)
	}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning project hit: %w", err)
		}
		res.Projects = append(res.Projects, *p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = r.pool.Query(ctx,
		`SELECT t.id, t.project_id, t.content, t.is_completed, t.position, t.creator_id, t.created_at, t.updated_at, a.name
		 FROM todos t JOIN (SELECT p.id, p.name `+scope+`) a ON a.id = t.project_id
		 WHERE t.content ILIKE $3
		 ORDER BY t.updated_at DESC LIMIT $4`, userID, includeArchived, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("searching todos: %w", err)
	}
	for rows.Next() {
		var h TodoHit
		if err := rows.Scan(&h.ID, &h.ProjectID, &h.Content, &h.IsCompleted, &h.Position,
			&h.CreatorID, &h.CreatedAt, &h.UpdatedAt, &h.ProjectName); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning todo hit: %w", err)
		}
		res.Todos = append(res.Todos, h)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = r.pool.Query(ctx,
		`SELECT n.id, n.project_id, n.content, n.position, n.creator_id, n.created_at, n.updated_at, a.name
		 FROM notes n JOIN (SELECT p.id, p.name `+scope+`) a ON a.id = n.project_id
		 WHERE n.content ILIKE $3
		 ORDER BY n.updated_at DESC LIMIT $4`, userID, includeArchived, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("searching notes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var h NoteHit
		if err := rows.Scan(&h.ID, &h.ProjectID, &h.Content, &h.Position,
			&h.CreatorID, &h.CreatedAt, &h.UpdatedAt, &h.ProjectName); err != nil {
			return nil, fmt.Errorf("scanning note hit: %w", err)
		}
		res.Notes = append(res.Notes, h)
	}
	return res, rows.Err()
}

func (r *postgresRepository) AddChatMessages(ctx context.Context, msgs []ChatMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, m := range msgs {
		batch.Queue(`INSERT INTO chat_messages (id, project_id, role, content, mode, created_at)
			VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)`,
			m.ID, m.ProjectID, m.Role, m.Content, m.Mode, m.CreatedAt)
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("inserting chat messages: %w", err)
	}
	return nil
}

// ListChatMessages returns the latest limit messages in chronological order.
func (r *postgresRepository) ListChatMessages(ctx context.Context, projectID uuid.UUID, limit int) ([]ChatMessage, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, project_id, role, content, COALESCE(mode, ''), created_at FROM (
		   SELECT * FROM chat_messages WHERE project_id = $1
		   ORDER BY created_at DESC LIMIT $2
		 ) recent ORDER BY created_at`, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing chat messages: %w", err)
	}
	defer rows.Close()

	list := []ChatMessage{}
	for rows.Next() {
		var m ChatMessage
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.Role, &m.Content, &m.Mode, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning chat message: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// FindResurfacingCandidates returns non-archived projects last opened before
// openedBefore that were never reminded or last reminded before remindedBefore.
func (r *postgresRepository) FindResurfacingCandidates(ctx context.Context, openedBefore, remindedBefore time.Time) ([]Project, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+projectColumns+`
		 FROM projects p
		 WHERE p.is_archived = FALSE
		   AND p.last_opened_at < $1
		   AND (p.last_reminded_at IS NULL OR p.last_reminded_at < $2)`,
		openedBefore, remindedBefore)
	if err != nil {
		return nil, fmt.Errorf("finding resurfacing candidates: %w", err)
	}
	defer rows.Close()

	list := []Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning candidate: %w", err)
		}
		list = append(list, *p)
	}
	return list, rows.Err()
}

// MarkReminded stamps last_reminded_at, never moving it backwards.
func (r *postgresRepository) MarkReminded(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.execOne(ctx, ErrNotFound, "marking project reminded",
		`UPDATE projects SET last_reminded_at = GREATEST(COALESCE(last_reminded_at, $2), $2) WHERE id = $1`, id, at)
}

// bump refreshes updated_at after a child row changed, for the activity sort.
func (r *postgresRepository) bump(ctx context.Context, projectID uuid.UUID) error {
	if _, err := r.pool.Exec(ctx, `UPDATE projects SET updated_at = NOW() WHERE id = $1`, projectID); err != nil {
		return fmt.Errorf("bumping project: %w", err)
	}
	return nil
}

func (r *postgresRepository) execOne(ctx context.Context, notFound error, op, query string, args ...any) error {
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return notFound
	}
	return nil
}
