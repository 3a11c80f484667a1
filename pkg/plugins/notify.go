package plugins

import (
	"sort"

	"github.com/sirupsen/logrus"
)

// Notifier shows user-facing messages about failures that do not abort the
// operation, such as a dependent that could not be unloaded.
type Notifier interface {
	Notify(title, message string)
}

// LogNotifier writes notifications to a logger.
type LogNotifier struct {
	Log *logrus.Logger
}

func (n LogNotifier) Notify(title, message string) {
	n.Log.WithField("title", title).Warn(message)
}

// Observer receives plugin events for metrics.
type Observer interface {
	PluginProbed(result string)
	PluginLoaded(kind, result string)
	PluginUnloaded(result string)
	PluginCounts(loaded, unloadable int)
	IPCCalled(result string)
}

type nopObserver struct{}

func (nopObserver) PluginProbed(string)         {}
func (nopObserver) PluginLoaded(string, string) {}
func (nopObserver) PluginUnloaded(string)       {}
func (nopObserver) PluginCounts(int, int)       {}
func (nopObserver) IPCCalled(string)            {}

func sortStrings(s []string) {
	sort.Strings(s)
}
