package crudguard

import (
	"maps"

	"github.com/goliatone/go-crud"

	"github.com/goliatone/go-prefs/access"
)

// DefaultPolicyMap maps the standard CRUD verbs to the supplied read/write
// actions. Create/Update/Delete (and their batch variants) map to the write
// action while list/show map to the read action.
func DefaultPolicyMap(readAction, writeAction access.Action) map[crud.CrudOperation]access.Action {
	m := map[crud.CrudOperation]access.Action{
		crud.OpRead:        readAction,
		crud.OpList:        readAction,
		crud.OpCreate:      writeAction,
		crud.OpCreateBatch: writeAction,
		crud.OpUpdate:      writeAction,
		crud.OpUpdateBatch: writeAction,
		crud.OpDelete:      writeAction,
		crud.OpDeleteBatch: writeAction,
	}
	return m
}

func clonePolicyMap(in map[crud.CrudOperation]access.Action) map[crud.CrudOperation]access.Action {
	if len(in) == 0 {
		return nil
	}
	cp := make(map[crud.CrudOperation]access.Action, len(in))
	maps.Copy(cp, in)
	return cp
}
