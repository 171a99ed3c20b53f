package domain

import "time"

// ChangeKind identifies what part of the system a ChangeEvent describes.
type ChangeKind string

const (
	KindCatalogMerged    ChangeKind = "catalog_merged"
	KindToolAdded        ChangeKind = "tool_added"
	KindToolRemoved      ChangeKind = "tool_removed"
	KindPackageInstalled ChangeKind = "package_installed"
	KindPackageRemoved   ChangeKind = "package_removed"
)

// ChangeEvent is emitted when the catalog or the installed set changes.
type ChangeEvent struct {
	Kind    ChangeKind
	Package string
	Count   int
	At      time.Time
}

// ChangeEmitter publishes change events to interested subscribers.
type ChangeEmitter interface {
	Emit(event ChangeEvent)
}
