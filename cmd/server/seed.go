package main

import (
	"context"
	"errors"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"studytrack/internal/apperr"
	"studytrack/internal/db"
	"studytrack/internal/models"
	"studytrack/internal/store"
)

var (
	seedEmail    string
	seedUsername string
	seedPassword string
	seedKeep     bool

	seedCmd = &cobra.Command{
		Use:   "seed",
		Short: "Load the default syllabus for a user, creating the user if needed",
		RunE:  runSeed,
	}
)

func init() {
	seedCmd.Flags().StringVar(&seedEmail, "email", "", "user email (required)")
	seedCmd.Flags().StringVar(&seedUsername, "username", "", "username for a new user (defaults to the email local part)")
	seedCmd.Flags().StringVar(&seedPassword, "password", "", "password for a new user")
	seedCmd.Flags().BoolVar(&seedKeep, "keep", false, "keep the existing syllabus instead of replacing it")
	_ = seedCmd.MarkFlagRequired("email")
}

func runSeed(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()
	if err := cfg.RequireDatabase(); err != nil {
		return err
	}

	seed, err := db.DefaultSyllabus()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	conn, err := openDB(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer conn.Close()
	st := store.New(conn)

	user, err := seedUser(ctx, st, strings.ToLower(strings.TrimSpace(seedEmail)))
	if err != nil {
		return err
	}

	var removed int64
	var topics int
	err = st.Atomic(ctx, func(q *store.Queries) error {
		if !seedKeep {
			if removed, err = q.DeleteSubjectsByUser(ctx, user.ID); err != nil {
				return err
			}
		}
		topics, err = q.SeedSyllabus(ctx, user.ID, syllabusTree(seed))
		return err
	})
	if err != nil {
		return err
	}
	logger.Info("syllabus seeded",
		zap.Int("user_id", user.ID),
		zap.Int("subjects", len(seed)),
		zap.Int("topics", topics),
		zap.Int64("replaced_subjects", removed))
	return nil
}

func seedUser(ctx context.Context, st *store.Store, email string) (models.User, error) {
	u, err := st.UserByEmail(ctx, email)
	if err == nil || !apperr.IsNotFound(err) {
		return u, err
	}
	if seedPassword == "" {
		return models.User{}, errors.New("--password is required to create a new user")
	}
	username := seedUsername
	if username == "" {
		username, _, _ = strings.Cut(email, "@")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, err
	}
	return st.CreateUser(ctx, username, email, string(hashed))
}

func syllabusTree(seed []db.SeedSubject) []models.SubjectTree {
	out := make([]models.SubjectTree, 0, len(seed))
	for _, s := range seed {
		st := models.SubjectTree{Subject: models.Subject{Name: s.Name}}
		for _, t := range s.Topics {
			st.Topics = append(st.Topics, models.Topic{Name: t.Name, EstimatedMinutes: t.Estimate})
		}
		out = append(out, st)
	}
	return out
}
