package api

import (
	"sort"

	"github.com/wilhasse/hfs-go/btr"
)

type statusVar struct {
	name string
	get  func(btr.ReserveStats) int64
}

var statusVars = []statusVar{
	{"reserve_inserts", func(s btr.ReserveStats) int64 { return int64(s.Inserts) }},
	{"reserve_deletes", func(s btr.ReserveStats) int64 { return int64(s.Deletes) }},
	{"reserve_merges", func(s btr.ReserveStats) int64 { return int64(s.Merges) }},
	{"reserve_entries", func(s btr.ReserveStats) int64 { return int64(s.Entries) }},
	{"reserve_extensions", func(s btr.ReserveStats) int64 { return int64(s.Extensions) }},
	{"reserve_out_of_space", func(s btr.ReserveStats) int64 { return int64(s.OutOfSpace) }},
}

// StatusGetI64 returns a status variable value as int64.
func (e *Engine) StatusGetI64(name string, dst *int64) ErrCode {
	if dst == nil {
		return DB_INVALID_INPUT
	}
	reserve := e.Reserve()
	if reserve == nil {
		return DB_ERROR
	}
	name = keyName(name)
	for _, v := range statusVars {
		if v.name == name {
			*dst = v.get(reserve.Stats())
			return DB_SUCCESS
		}
	}
	return DB_NOT_FOUND
}

// StatusNames returns the status variable names in order.
func StatusNames() []string {
	names := make([]string, 0, len(statusVars))
	for _, v := range statusVars {
		names = append(names, v.name)
	}
	sort.Strings(names)
	return names
}
