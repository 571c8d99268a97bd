package nvm

import (
	"errors"

	"github.com/ferrokv/ferrokv/lib/ferrostore"
	"github.com/ferrokv/ferrokv/lib/schema"
)

// migrateEntry implements §4.9's lazy migrator contract for a single
// read. buf holds n bytes of the persisted old-version payload on entry;
// on success it holds the upgraded payload and the new length is
// returned. The migrator is given the caller's buffer directly, never the
// engine's scratch buffer (§5: "migrators receive the caller's buffer").
func (e *Engine) migrateEntry(tag uint16, buf []byte, n int, se schema.Entry, oldVer uint8) (int, error) {
	newVer := se.Version

	if newVer == oldVer {
		return n, nil
	}
	if newVer < oldVer {
		return 0, ferrostore.NewError(ferrostore.Version, tag, "no downgrade migration")
	}
	if se.Migrate == nil {
		return 0, ferrostore.NewError(ferrostore.Version, tag, "no migrator registered for version change")
	}

	newLen := n
	if err := se.Migrate(buf, n, &newLen, len(buf), oldVer, newVer); err != nil {
		var bts *schema.BufferTooSmallError
		if errors.As(err, &bts) {
			return 0, ferrostore.NewBufferError(tag, uint32(bts.Required))
		}
		return 0, ferrostore.WrapError(ferrostore.Generic, tag, "migration failed", err)
	}

	if uint32(newLen) > se.MaxLength {
		return 0, ferrostore.NewError(ferrostore.InvalidParam, tag, "migrator produced oversize payload")
	}

	return newLen, nil
}

// migrateAll sweeps every live tag whose persisted version trails the
// active schema and forces a read (which performs migration and
// write-back as a side effect), for AUTO_MIGRATE_ON_BOOT. Failures are
// logged to the error ledger and otherwise ignored; a boot-time sweep
// must not prevent the engine from coming up. It tracks migrated/failed
// counts the way the original implementation's tlv_get_migration_stats
// did, surfaced here through MigrationStats() instead of a separate call.
func (e *Engine) migrateAll() {
	migrated, failed := 0, 0
	buf := make([]byte, e.opts.BufferSize)
	for _, entry := range e.index {
		if entry.Empty() || !entry.Valid() {
			continue
		}
		se, ok := e.reg.Lookup(entry.Tag)
		if !ok || entry.Version >= se.Version {
			continue
		}
		for {
			_, err := e.Read(entry.Tag, buf)
			if err == nil {
				// Read also succeeds when a migrator fails or write-back fails
				// (the stale data is returned); only a bumped index version
				// counts as migrated.
				if _, cur, ok := e.findIndex(entry.Tag); ok && cur.Version >= se.Version {
					migrated++
				} else {
					failed++
				}
				break
			}
			fe, ok := err.(*ferrostore.Error)
			if ok && fe.Code == ferrostore.NoBufferMemory && fe.Required > uint32(len(buf)) {
				buf = make([]byte, fe.Required)
				continue
			}
			failed++
			break
		}
	}
	e.lastMigrated = migrated
	e.lastMigrationFailed = failed
}

// MigrationStats reports the migrated/failed counts of the most recent
// AUTO_MIGRATE_ON_BOOT sweep. Both are zero if AutoMigrateOnBoot is
// disabled or Init hasn't run one yet.
func (e *Engine) MigrationStats() (migrated, failed int) {
	return e.lastMigrated, e.lastMigrationFailed
}
