package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"facemark.io/application/repository"
	"facemark.io/entities"
	"facemark.io/infrastructure/logger"
)

const directoryPath = "/api/v1/employees"

type remoteEmployee struct {
	Key          string `json:"key"`
	Name         string `json:"name"`
	Active       bool   `json:"active"`
	FaceTemplate string `json:"faceTemplate"`
}

// RefreshDirectory pulls the enrolled employee list from the HR backend and
// upserts it into the local store, keyed by remote key. Returns how many
// records were written.
func (gateway *SyncGateway) RefreshDirectory() (int, error) {
	gateway.mutex.Lock()
	defer gateway.mutex.Unlock()

	if err := gateway.ensureToken(); err != nil {
		return 0, err
	}

	response, statusCode, err := gateway.Network.Get(directoryPath, gateway.authHeaders())
	if err != nil {
		return 0, err
	}
	if *statusCode == http.StatusUnauthorized || *statusCode == http.StatusForbidden {
		if err := gateway.authenticate(); err != nil {
			return 0, fmt.Errorf("reauthentication failed: %w", err)
		}
		response, statusCode, err = gateway.Network.Get(directoryPath, gateway.authHeaders())
		if err != nil {
			return 0, err
		}
	}
	if *statusCode < 200 || *statusCode > 299 {
		return 0, fmt.Errorf("directory read rejected with status %d", *statusCode)
	}

	var remote []remoteEmployee
	if err := json.Unmarshal(*response, &remote); err != nil {
		return 0, fmt.Errorf("unreadable directory response: %w", err)
	}

	written := 0
	for _, record := range remote {
		if record.Key == "" {
			continue
		}
		if err := gateway.upsertEmployee(record); err != nil {
			logger.Warning("skipping employee record that failed to upsert", logger.LoggerOptions{
				Key:  "remote_key",
				Data: record.Key,
			}, logger.LoggerOptions{
				Key:  "error",
				Data: err,
			})
			continue
		}
		written++
	}
	return written, nil
}

func (gateway *SyncGateway) upsertEmployee(record remoteEmployee) error {
	existing, err := repository.EmployeeRepo().FindOneByFilter(map[string]interface{}{
		"remoteKey": record.Key,
	})
	if err != nil {
		return err
	}

	if existing == nil {
		created, err := repository.EmployeeRepo().CreateOne(context.Background(), entities.Employee{
			Name:         record.Name,
			RemoteKey:    record.Key,
			FaceTemplate: record.FaceTemplate,
			Active:       record.Active,
		})
		if err != nil {
			return err
		}
		gateway.PrimeRemoteKey(created.ID, record.Key)
		return nil
	}

	update := map[string]interface{}{
		"name":   record.Name,
		"active": record.Active,
	}
	if record.FaceTemplate != "" {
		update["faceTemplate"] = record.FaceTemplate
	}
	if _, err = repository.EmployeeRepo().UpdatePartialByFilter(context.Background(), map[string]interface{}{
		"_id": existing.ID,
	}, update); err != nil {
		return err
	}
	gateway.PrimeRemoteKey(existing.ID, record.Key)
	return nil
}
