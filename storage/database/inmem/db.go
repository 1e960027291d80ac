package inmemdb

import (
	"sort"
	"strings"
	"sync"

	"github.com/trezcool/ada/core"
	"github.com/trezcool/ada/core/fee"
	"github.com/trezcool/ada/core/payment"
	"github.com/trezcool/ada/core/student"
	"github.com/trezcool/ada/core/tenant"
	"github.com/trezcool/ada/core/user"
)

type (
	// DB keeps every table in memory. Rows are returned in insertion order unless asked otherwise.
	DB struct {
		tenant  *tenantTable
		user    *userTable
		student *studentTable
		fee     *feeTable
		payment *paymentTable
	}

	tenantTable struct {
		sync.RWMutex
		ids   []string
		table map[string]*tenant.Tenant
	}

	userTable struct {
		sync.RWMutex
		ids   []string
		table map[string]*user.User
	}

	studentTable struct {
		sync.RWMutex
		ids   []string
		table map[string]*student.Student
	}

	feeTable struct {
		sync.RWMutex
		ids   []string
		table map[string]*fee.FeeStructure
	}

	paymentTable struct {
		sync.RWMutex
		ids   []string
		table map[string]*payment.Payment
	}
)

func Open() *DB {
	return &DB{
		tenant:  &tenantTable{table: make(map[string]*tenant.Tenant)},
		user:    &userTable{table: make(map[string]*user.User)},
		student: &studentTable{table: make(map[string]*student.Student)},
		fee:     &feeTable{table: make(map[string]*fee.FeeStructure)},
		payment: &paymentTable{table: make(map[string]*payment.Payment)},
	}
}

// Reset empties every table.
func (db *DB) Reset() {
	fresh := Open()
	db.tenant.Lock()
	db.tenant.ids, db.tenant.table = nil, fresh.tenant.table
	db.tenant.Unlock()

	db.user.Lock()
	db.user.ids, db.user.table = nil, fresh.user.table
	db.user.Unlock()

	db.student.Lock()
	db.student.ids, db.student.table = nil, fresh.student.table
	db.student.Unlock()

	db.fee.Lock()
	db.fee.ids, db.fee.table = nil, fresh.fee.table
	db.fee.Unlock()

	db.payment.Lock()
	db.payment.ids, db.payment.table = nil, fresh.payment.table
	db.payment.Unlock()
}

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

// containsFold reports whether any of `values` contains `search`, ignoring case.
func containsFold(search string, values ...string) bool {
	search = strings.ToLower(search)
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), search) {
			return true
		}
	}
	return false
}

// sortBy stably sorts `n` rows comparing them with `cmp` on each ordering field in turn.
func sortBy(n int, ordering []core.DBOrdering, swap func(i, j int), cmp func(i, j int, field string) int) {
	if len(ordering) == 0 {
		return
	}
	sort.Stable(sorter{n: n, swap: swap, less: func(i, j int) bool {
		for _, ord := range ordering {
			c := cmp(i, j, ord.Field)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	}})
}

type sorter struct {
	n    int
	swap func(i, j int)
	less func(i, j int) bool
}

func (s sorter) Len() int           { return s.n }
func (s sorter) Swap(i, j int)      { s.swap(i, j) }
func (s sorter) Less(i, j int) bool { return s.less(i, j) }
