package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ayusman/isyarat/internal/app"
	"github.com/ayusman/isyarat/internal/quiz"
	"github.com/ayusman/isyarat/internal/store"
)

var practiceOpts struct {
	Level   string
	Signing int
	Seed    uint64
	Limit   time.Duration
}

var practiceCmd = &cobra.Command{
	Use:   "practice",
	Short: "Practice a level in front of the local camera",
	Long: `Practice runs the questions of a level against the local camera.
Letters are answered with one sign; words and phrases are spelled letter by
letter. Answering every question completes the level and unlocks the next.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return practice(cmd.Context())
	},
}

func init() {
	practiceCmd.Flags().StringVar(&practiceOpts.Level, "level", "1.1", "level to practice (1.1 .. 3.3)")
	practiceCmd.Flags().IntVar(&practiceOpts.Signing, "signing", 0, "practice the signing set 1, 2 or 3 instead of a level")
	practiceCmd.Flags().Uint64Var(&practiceOpts.Seed, "seed", uint64(time.Now().UnixNano()), "shuffle seed")
	practiceCmd.Flags().DurationVar(&practiceOpts.Limit, "limit", 30*time.Second, "time allowed per question")
	rootCmd.AddCommand(practiceCmd)
}

func practice(ctx context.Context) error {
	var (
		questions []quiz.Question
		level     quiz.Level
	)
	if practiceOpts.Signing != 0 {
		qs, err := quiz.Performance(practiceOpts.Signing)
		if err != nil {
			return err
		}
		questions = qs
	} else {
		l, ok := quiz.Find(practiceOpts.Level)
		if !ok {
			return fmt.Errorf("unknown level %q", practiceOpts.Level)
		}
		level = l
		questions = l.Questions(quiz.NewRand(practiceOpts.Seed))
	}

	st, a, err := openApp(nil)
	if err != nil {
		return err
	}
	defer st.Close()
	defer a.Close()

	if level.ID != "" {
		p, err := st.Progress().Get(level.ID)
		if err != nil {
			return err
		}
		if !p.Unlocked {
			return fmt.Errorf("level %s is locked", level.ID)
		}
	}

	decisions := make(chan app.Decision, 16)
	a.Pipeline().OnDecision(func(d app.Decision) {
		select {
		case decisions <- d:
		default:
		}
	})

	if err := a.Start(); err != nil {
		return err
	}

	answered := 0
	for i, q := range questions {
		ok, err := ask(ctx, a, st, q, i+1, len(questions), decisions)
		if err != nil {
			return err
		}
		if ok {
			answered++
		}
	}
	a.Pipeline().Cancel()

	fmt.Printf("\n%d of %d answered\n", answered, len(questions))

	if level.ID == "" || answered < len(questions) {
		return nil
	}
	if err := st.Progress().Complete(level.ID); err != nil {
		return err
	}
	if next, ok := quiz.Next(level.ID); ok {
		if err := st.Progress().Unlock(next); err != nil {
			return err
		}
		fmt.Printf("Level %s complete, %s unlocked\n", level.ID, next)
	} else {
		fmt.Printf("Level %s complete\n", level.ID)
	}
	return nil
}

// ask runs one question until it is completed or the time limit passes.
func ask(ctx context.Context, a *app.App, st *store.Store, q quiz.Question, n, total int, decisions <-chan app.Decision) (bool, error) {
	steps := 1
	if a.Pipeline().Spelling(q.Shape) {
		steps = len([]rune(q.Target))
	}

	id, err := a.Pipeline().Start(q.Shape, q.Target)
	if err != nil {
		return false, err
	}

	bar := progressbar.NewOptions(steps,
		progressbar.OptionSetDescription(fmt.Sprintf("[%d/%d] Sign %q", n, total, q.Target)),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
	)
	defer bar.Exit()

	limit := time.NewTimer(practiceOpts.Limit)
	defer limit.Stop()

	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-limit.C:
			bar.Describe(fmt.Sprintf("[%d/%d] Sign %q: time is up", n, total, q.Target))
			return false, nil
		case d := <-decisions:
			if d.SessionID != id {
				continue
			}
			recordAttempt(st, d)
			if d.Step != nil {
				bar.Set(d.Step.Cursor)
			}
			if d.Detected && !d.Correct {
				bar.Describe(fmt.Sprintf("[%d/%d] Sign %q: saw %s (%.0f%%)", n, total, q.Target, d.Result.Label, d.Result.Confidence*100))
			}
			if d.Completed {
				bar.Finish()
				return true, nil
			}
		}
	}
}

func recordAttempt(st *store.Store, d app.Decision) {
	attempt, ok := d.Attempt()
	if !ok {
		return
	}
	if err := st.Attempts().Create(attempt); err != nil {
		log.Printf("Failed to record attempt: %v", err)
	}
}
