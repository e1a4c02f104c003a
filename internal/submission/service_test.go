package submission

import (
	"context"
	"errors"
	"testing"

	"studygroup/internal/auth"
	"studygroup/internal/docstore"
)

func seed(t *testing.T, svc *Service, docs ...docstore.Document) []string {
	t.Helper()
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		res, err := svc.Create(context.Background(), doc)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		ids = append(ids, res.InsertedID)
	}
	return ids
}

func TestListByOwner(t *testing.T) {
	ctx := context.Background()
	svc := NewService(docstore.NewMemory().Collection("submittedAssignments"))
	seed(t, svc,
		docstore.Document{"email": "ada@example.com", "pdf": "a1"},
		docstore.Document{"email": "eve@example.com", "pdf": "e1"},
		docstore.Document{"email": "ada@example.com", "pdf": "a2"},
	)
	ada := auth.Identity{Email: "ada@example.com"}

	got, err := svc.ListByOwner(ctx, "ada@example.com", ada)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	for _, doc := range got {
		if doc["email"] != "ada@example.com" {
			t.Fatalf("leaked %v", doc)
		}
	}

	if _, err := svc.ListByOwner(ctx, "eve@example.com", ada); !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}

	own, err := svc.ListByOwner(ctx, "", ada)
	if err != nil || len(own) != 2 {
		t.Fatalf("empty email = %d docs, %v; want caller's 2", len(own), err)
	}

	all, _ := svc.ListAll(ctx)
	if len(all) != 3 {
		t.Fatalf("ListAll = %d, want 3", len(all))
	}
}

func TestGradeTouchesOnlyGradeFields(t *testing.T) {
	ctx := context.Background()
	svc := NewService(docstore.NewMemory().Collection("submittedAssignments"))
	ids := seed(t, svc, docstore.Document{
		"email":  "ada@example.com",
		"pdf":    "https://example.com/a.pdf",
		"note":   "please review",
		"status": StatusPending,
	})

	res, err := svc.Grade(ctx, ids[0], Grade{Status: "completed", ObtainedMarks: 90.0, Feedback: "good"})
	if err != nil {
		t.Fatalf("grade: %v", err)
	}
	if res.MatchedCount != 1 || res.ModifiedCount != 1 {
		t.Fatalf("grade result = %+v", res)
	}

	doc, _ := svc.Get(ctx, ids[0])
	if doc["status"] != "completed" || doc["obtained_marks"] != 90.0 || doc["feedback"] != "good" {
		t.Fatalf("graded doc = %v", doc)
	}
	if doc["email"] != "ada@example.com" || doc["pdf"] != "https://example.com/a.pdf" || doc["note"] != "please review" {
		t.Fatalf("submission payload changed: %v", doc)
	}

	if _, err := svc.Grade(ctx, ids[0], Grade{Status: "completed", ObtainedMarks: 95.0, Feedback: "better"}); err != nil {
		t.Fatalf("regrade: %v", err)
	}
	doc, _ = svc.Get(ctx, ids[0])
	if doc["obtained_marks"] != 95.0 {
		t.Fatalf("last grade should win, got %v", doc["obtained_marks"])
	}
}

func TestGradeStatusRules(t *testing.T) {
	ctx := context.Background()
	svc := NewService(docstore.NewMemory().Collection("submittedAssignments"))
	ids := seed(t, svc, docstore.Document{"email": "ada@example.com", "status": StatusPending})

	if _, err := svc.Grade(ctx, ids[0], Grade{Status: StatusPending}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}

	if _, err := svc.Grade(ctx, ids[0], Grade{ObtainedMarks: 10.0}); err != nil {
		t.Fatalf("grade: %v", err)
	}
	doc, _ := svc.Get(ctx, ids[0])
	if doc["status"] != StatusCompleted {
		t.Fatalf("status = %v, want %s", doc["status"], StatusCompleted)
	}
}

func TestGradeMissingSubmission(t *testing.T) {
	svc := NewService(docstore.NewMemory().Collection("submittedAssignments"))
	res, err := svc.Grade(context.Background(), "missing", Grade{Status: "completed"})
	if err != nil {
		t.Fatalf("grade: %v", err)
	}
	if res.MatchedCount != 0 || res.UpsertedCount != 0 {
		t.Fatalf("grade of missing submission = %+v, want no match and no upsert", res)
	}
}
