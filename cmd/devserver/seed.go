package main

import (
	"fmt"
	"time"

	"github.com/nkiryanov/doccollab/internal/devserver"
	"github.com/nkiryanov/doccollab/internal/models"
)

// Demo account created with '--seed'
var demoUser = models.Registration{
	User: models.User{
		Username:  "demo",
		Email:     "demo@example.com",
		FirstName: "Demo",
		LastName:  "User",
	},
	Password: "demo-password",
}

func seed(srv *devserver.Server, now time.Time) (models.User, error) {
	user, err := srv.AddUser(demoUser)
	if err != nil {
		return models.User{}, fmt.Errorf("error while creating demo user. Err: %w", err)
	}

	store := srv.Store()
	welcome := store.AddDocument(user.ID, models.Document{
		Name:    "Welcome",
		DocType: "text",
		Content: "<p>Hello &amp; welcome</p>",
		DocDate: now.Format(time.DateOnly),
	})
	plan := store.AddDocument(user.ID, models.Document{
		Name:    "Plan",
		DocType: "text",
		Content: "<ul><li>write</li></ul>",
		DocDate: now.Format(time.DateOnly),
	})

	store.AddNotification(user.ID, "shared a document with you", now.Add(-3*24*time.Hour), welcome)
	store.AddNotification(user.ID, "commented on your document", now.Add(-2*time.Hour), plan)
	store.AddNotification(user.ID, "edited your document", now.Add(-90*time.Second), plan)

	return user, nil
}
