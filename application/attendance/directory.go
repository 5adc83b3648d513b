package attendance

import (
	"facemark.io/application/repository"
	"facemark.io/infrastructure/biometric"
	"facemark.io/infrastructure/biometric/types"
	"facemark.io/infrastructure/logger"
)

// MongoEmployeeDirectory reads enrolled employees and decodes their stored
// face templates. A template that fails to decode is skipped, never allowed
// to abort a whole matching pass.
type MongoEmployeeDirectory struct{}

func NewMongoEmployeeDirectory() *MongoEmployeeDirectory {
	return &MongoEmployeeDirectory{}
}

func (directory *MongoEmployeeDirectory) AllEnrolledEmbeddings() (map[string]types.Embedding, error) {
	employees, err := repository.EmployeeRepo().FindMany(map[string]interface{}{
		"active":    true,
		"deletedAt": nil,
	})
	if err != nil {
		return nil, err
	}

	embeddings := make(map[string]types.Embedding, len(*employees))
	for _, employee := range *employees {
		if employee.FaceTemplate == "" {
			continue
		}
		decoded, err := biometric.DecodeEmbedding(employee.FaceTemplate)
		if err != nil {
			logger.Warning("skipping employee with undecodable face template", logger.LoggerOptions{
				Key:  "employee_id",
				Data: employee.ID,
			}, logger.LoggerOptions{
				Key:  "error",
				Data: err,
			})
			continue
		}
		embeddings[employee.ID] = *decoded
	}
	return embeddings, nil
}
