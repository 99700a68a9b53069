package logger

// Discard drops every entry. Packages fall back to it when their
// context carries no logger.
var Discard Logger = discardLogger{}

type discardLogger struct{}

func (d discardLogger) WithOutlet(Outlet, Level) Logger         { return d }
func (d discardLogger) ReplaceField(string, interface{}) Logger { return d }
func (d discardLogger) WithField(string, interface{}) Logger    { return d }
func (d discardLogger) WithFields(Fields) Logger                { return d }
func (d discardLogger) WithError(error) Logger                  { return d }
func (discardLogger) Log(Level, string)                         {}
func (discardLogger) Debug(string)                              {}
func (discardLogger) Info(string)                               {}
func (discardLogger) Warn(string)                               {}
func (discardLogger) Error(string)                              {}
func (discardLogger) Printf(string, ...interface{})             {}
