package store

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"studytrack/internal/models"
)

const (
	subjectColumns = `id, user_id, name, manual_time_minutes, created_at`
	topicColumns   = `id, subject_id, name, estimated_minutes, total_modules, logged_minutes, completed_modules, is_completed`
)

func (q *Queries) ListSubjects(ctx context.Context, userID int) ([]models.Subject, error) {
	var subjects []models.Subject
	err := q.selectAll(ctx, &subjects, `SELECT `+subjectColumns+` FROM subjects WHERE user_id=$1 ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

func (q *Queries) ListTopicsByUser(ctx context.Context, userID int) ([]models.Topic, error) {
	var topics []models.Topic
	err := q.selectAll(ctx, &topics, `SELECT t.id, t.subject_id, t.name, t.estimated_minutes, t.total_modules,
			t.logged_minutes, t.completed_modules, t.is_completed
		FROM topics t JOIN subjects s ON s.id = t.subject_id
		WHERE s.user_id=$1 ORDER BY t.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	return topics, nil
}

// SyllabusTree loads subjects and topics concurrently and nests them.
func (s *Store) SyllabusTree(ctx context.Context, userID int) ([]models.SubjectTree, error) {
	var (
		subjects []models.Subject
		topics   []models.Topic
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		subjects, err = s.ListSubjects(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		topics, err = s.ListTopicsByUser(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return nestTopics(subjects, topics), nil
}

func nestTopics(subjects []models.Subject, topics []models.Topic) []models.SubjectTree {
	tree := make([]models.SubjectTree, len(subjects))
	index := make(map[int]int, len(subjects))
	for i, s := range subjects {
		tree[i] = models.SubjectTree{Subject: s, Topics: []models.Topic{}}
		index[s.ID] = i
	}
	for _, t := range topics {
		if i, ok := index[t.SubjectID]; ok {
			tree[i].Topics = append(tree[i].Topics, t)
		}
	}
	return tree
}

func (q *Queries) CreateSubject(ctx context.Context, userID int, name string) (models.Subject, error) {
	var s models.Subject
	err := q.get(ctx, &s, `INSERT INTO subjects (user_id, name) VALUES ($1, $2) RETURNING `+subjectColumns, userID, name)
	return s, translate("user", err)
}

// SubjectOwnedBy reports a subject belonging to someone else as not found.
func (q *Queries) SubjectOwnedBy(ctx context.Context, userID, subjectID int) (models.Subject, error) {
	var s models.Subject
	err := q.get(ctx, &s, `SELECT `+subjectColumns+` FROM subjects WHERE id=$1 AND user_id=$2`, subjectID, userID)
	return s, translate("subject", err)
}

func (q *Queries) RenameSubject(ctx context.Context, userID, subjectID int, name string) (models.Subject, error) {
	var s models.Subject
	err := q.get(ctx, &s, `UPDATE subjects SET name=$1 WHERE id=$2 AND user_id=$3 RETURNING `+subjectColumns,
		name, subjectID, userID)
	return s, translate("subject", err)
}

func (q *Queries) DeleteSubject(ctx context.Context, userID, subjectID int) error {
	res, err := q.ext.ExecContext(ctx, `DELETE FROM subjects WHERE id=$1 AND user_id=$2`, subjectID, userID)
	if err != nil {
		return fmt.Errorf("delete subject: %w", err)
	}
	return rowsAffected("subject", res)
}

// DeleteSubjectsByUser wipes the whole syllabus. Topics and activity logs go
// with it through the cascades.
func (q *Queries) DeleteSubjectsByUser(ctx context.Context, userID int) (int64, error) {
	res, err := q.ext.ExecContext(ctx, `DELETE FROM subjects WHERE user_id=$1`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete subjects: %w", err)
	}
	return res.RowsAffected()
}

type NewTopic struct {
	SubjectID        int
	Name             string
	EstimatedMinutes int
	TotalModules     int
}

// CreateTopic inserts only when the subject belongs to userID.
func (q *Queries) CreateTopic(ctx context.Context, userID int, t NewTopic) (models.Topic, error) {
	var topic models.Topic
	err := q.get(ctx, &topic, `INSERT INTO topics (subject_id, name, estimated_minutes, total_modules)
		SELECT s.id, $2, $3, $4 FROM subjects s WHERE s.id=$1 AND s.user_id=$5
		RETURNING `+topicColumns, t.SubjectID, t.Name, t.EstimatedMinutes, t.TotalModules, userID)
	return topic, translate("subject", err)
}

func (q *Queries) TopicOwnedBy(ctx context.Context, userID, topicID int) (models.Topic, error) {
	var t models.Topic
	err := q.get(ctx, &t, `SELECT t.id, t.subject_id, t.name, t.estimated_minutes, t.total_modules,
			t.logged_minutes, t.completed_modules, t.is_completed
		FROM topics t JOIN subjects s ON s.id = t.subject_id
		WHERE t.id=$1 AND s.user_id=$2`, topicID, userID)
	return t, translate("topic", err)
}

// TopicUpdate edits targets only. The logged counters belong to the ledger.
type TopicUpdate struct {
	Name             *string
	EstimatedMinutes *int
	TotalModules     *int
	IsCompleted      *bool
}

func (q *Queries) UpdateTopic(ctx context.Context, userID, topicID int, u TopicUpdate) (models.Topic, error) {
	var sets []string
	var args []any
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s=$%d", col, len(args)))
	}
	if u.Name != nil {
		add("name", *u.Name)
	}
	if u.EstimatedMinutes != nil {
		add("estimated_minutes", *u.EstimatedMinutes)
	}
	if u.TotalModules != nil {
		add("total_modules", *u.TotalModules)
	}
	if u.IsCompleted != nil {
		add("is_completed", *u.IsCompleted)
	}
	if len(sets) == 0 {
		return q.TopicOwnedBy(ctx, userID, topicID)
	}

	args = append(args, topicID, userID)
	query := fmt.Sprintf(`UPDATE topics SET %s
		WHERE id=$%d AND subject_id IN (SELECT id FROM subjects WHERE user_id=$%d)
		RETURNING %s`, strings.Join(sets, ", "), len(args)-1, len(args), topicColumns)

	var t models.Topic
	err := q.get(ctx, &t, query, args...)
	return t, translate("topic", err)
}

func (q *Queries) DeleteTopic(ctx context.Context, userID, topicID int) error {
	res, err := q.ext.ExecContext(ctx, `DELETE FROM topics
		WHERE id=$1 AND subject_id IN (SELECT id FROM subjects WHERE user_id=$2)`, topicID, userID)
	if err != nil {
		return fmt.Errorf("delete topic: %w", err)
	}
	return rowsAffected("topic", res)
}

// IncrementTopicCounters applies deltas in one statement so concurrent logs
// never lose an update. Deltas may be negative when reconciling an edit.
func (q *Queries) IncrementTopicCounters(ctx context.Context, topicID, minutes, modules int) (models.Topic, error) {
	var t models.Topic
	err := q.get(ctx, &t, `UPDATE topics
		SET logged_minutes = logged_minutes + $1, completed_modules = completed_modules + $2
		WHERE id=$3 RETURNING `+topicColumns, minutes, modules, topicID)
	return t, translate("topic", err)
}

func (q *Queries) IncrementSubjectManualTime(ctx context.Context, subjectID, minutes int) (models.Subject, error) {
	var s models.Subject
	err := q.get(ctx, &s, `UPDATE subjects SET manual_time_minutes = manual_time_minutes + $1
		WHERE id=$2 RETURNING `+subjectColumns, minutes, subjectID)
	return s, translate("subject", err)
}

// SeedSyllabus inserts subjects and topics in order. Callers wrap it in Atomic.
func (q *Queries) SeedSyllabus(ctx context.Context, userID int, subjects []models.SubjectTree) (int, error) {
	topics := 0
	for _, st := range subjects {
		s, err := q.CreateSubject(ctx, userID, st.Name)
		if err != nil {
			return topics, err
		}
		for _, t := range st.Topics {
			_, err := q.CreateTopic(ctx, userID, NewTopic{
				SubjectID:        s.ID,
				Name:             t.Name,
				EstimatedMinutes: t.EstimatedMinutes,
				TotalModules:     t.TotalModules,
			})
			if err != nil {
				return topics, err
			}
			topics++
		}
	}
	return topics, nil
}
