// Package dblog is the ambient structured-logging seam shared by the
// buffer pool and the hash index. It replaces the teacher's raw
// fmt.Printf("[BufferPool] ...") tracing with leveled, field-based logging,
// the same global-singleton shape as the logger packages seen elsewhere in
// the retrieval pack, scaled down to what this core needs.
package dblog

import "github.com/sirupsen/logrus"

// Fields is the structured-field map type passed to Log.WithFields,
// re-exported so callers don't need their own logrus import.
type Fields = logrus.Fields

// Log is the package-level logger every component in this module writes
// through. Callers that want different formatting, output, or level can
// replace it wholesale with SetLogger before constructing any pool or index.
var Log logrus.FieldLogger = defaultLogger()

func defaultLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.InfoLevel)
	return l
}

// SetLogger swaps the shared logger, e.g. to raise the level to Debug or to
// redirect output in a test or demonstration harness.
func SetLogger(l logrus.FieldLogger) {
	Log = l
}
