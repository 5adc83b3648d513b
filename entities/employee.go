package entities

import (
	"time"

	"facemark.io/application/utils"
)

// Employee is one enrolled person on this kiosk. FaceTemplate holds the
// encoded embedding (comma-joined fixed-precision floats); RemoteKey is the
// identifier the HR backend expects for attendance writes.
type Employee struct {
	Name         string `bson:"name" json:"name"`
	RemoteKey    string `bson:"remoteKey" json:"remoteKey"`
	FaceTemplate string `bson:"faceTemplate" json:"-"`
	Active       bool   `bson:"active" json:"active"`

	ID        string     `bson:"_id" json:"id"`
	CreatedAt time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time  `bson:"updatedAt" json:"updatedAt"`
	DeletedAt *time.Time `bson:"deletedAt" json:"deletedAt"`
}

func (model Employee) ParseModel() any {
	now := time.Now()
	if model.CreatedAt.IsZero() {
		model.CreatedAt = now
		if model.ID == "" {
			model.ID = utils.GenerateULIDString()
		}
	}
	model.UpdatedAt = now
	return &model
}
