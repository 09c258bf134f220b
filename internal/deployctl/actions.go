package deployctl

// Indirection layer to allow stubbing in tests

var (
	fnNewRunner = func() Runner { return execRunner{} }
	fnWaitHTTP  = waitHTTP
)
