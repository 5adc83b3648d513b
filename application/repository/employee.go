package repository

import (
	"sync"

	"facemark.io/entities"
	"facemark.io/infrastructure/database/connection/datastore"
	"facemark.io/infrastructure/database/repository/mongo"
)

var employeeOnce = sync.Once{}

var employeeRepository mongo.MongoRepository[entities.Employee]

func EmployeeRepo() *mongo.MongoRepository[entities.Employee] {
	employeeOnce.Do(func() {
		employeeRepository = mongo.MongoRepository[entities.Employee]{Model: datastore.EmployeeModel}
	})
	return &employeeRepository
}
