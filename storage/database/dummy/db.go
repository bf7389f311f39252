package dummydb

import (
	"sync"

	"github.com/trezcool/ratiba/core/audit"
	"github.com/trezcool/ratiba/core/schedule"
	"github.com/trezcool/ratiba/core/tenant"
	"github.com/trezcool/ratiba/core/user"
)

type (
	DB struct {
		tenant       *tenantTable
		user         *userTable
		availability *availabilityTable
		booking      *bookingTable
		audit        *auditTable
	}

	tenantTable struct {
		sync.RWMutex
		table map[string]*tenant.Tenant
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	availabilityTable struct {
		sync.RWMutex
		table map[string]*schedule.Availability
	}

	bookingTable struct {
		sync.RWMutex
		table map[string]*schedule.Booking
	}

	auditTable struct {
		sync.RWMutex
		table map[string]*audit.Entry
	}
)

func Open() (*DB, error) {
	db := &DB{
		tenant:       &tenantTable{table: make(map[string]*tenant.Tenant)},
		user:         &userTable{table: make(map[string]*user.User)},
		availability: &availabilityTable{table: make(map[string]*schedule.Availability)},
		booking:      &bookingTable{table: make(map[string]*schedule.Booking)},
		audit:        &auditTable{table: make(map[string]*audit.Entry)},
	}
	return db, nil
}
