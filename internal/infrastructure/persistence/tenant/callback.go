package tenant

import (
	"context"
	"reflect"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RegisterGuard installs a create callback that rejects rows whose
// non-nullable TenantID is the nil UUID. Tables that allow shared rows
// declare TenantID as *uuid.UUID and are left alone.
func RegisterGuard(db *gorm.DB) error {
	return db.Callback().Create().Before("gorm:create").Register("tenant:guard_create", guardCreate)
}

func guardCreate(db *gorm.DB) {
	if db.Statement.Schema == nil {
		return
	}
	field := db.Statement.Schema.LookUpField("TenantID")
	if field == nil || field.FieldType != reflect.TypeOf(uuid.UUID{}) {
		return
	}
	rv := db.Statement.ReflectValue
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if missingTenant(db, field.ValueOf, rv.Index(i)) {
				return
			}
		}
	case reflect.Struct:
		missingTenant(db, field.ValueOf, rv)
	}
}

func missingTenant(db *gorm.DB, valueOf func(context.Context, reflect.Value) (any, bool), v reflect.Value) bool {
	val, zero := valueOf(db.Statement.Context, reflect.Indirect(v))
	if zero || val == uuid.Nil {
		_ = db.AddError(ErrTenantIDRequired)
		return true
	}
	return false
}
