package strategies

import (
	"os"
	"time"

	"github.com/vietddude/sentinel/internal/resolve"
)

// Deps holds the action adapters available to the built-in strategies.
// Nil adapters for infrastructure we cannot reach are replaced by local
// defaults where one exists; strategies with no adapter are skipped.
type Deps struct {
	Pool           PoolController
	Memory         MemoryController
	Rate           RateController
	Disk           DiskCleaner
	Tokens         TokenSource
	Procs          ProcessManager
	Content        ContentPipeline
	DefaultService string
}

// Register wires the built-in strategies into the catalog.
func Register(catalog *resolve.Catalog, deps Deps) error {
	if deps.Memory == nil {
		deps.Memory = NewRuntimeMemoryController()
	}
	if deps.Rate == nil {
		deps.Rate = NewIntervalController(time.Second, 5*time.Minute)
	}
	if deps.Disk == nil {
		deps.Disk = &DirCleaner{Dirs: []string{os.TempDir()}, MaxAge: 24 * time.Hour}
	}

	all := []resolve.Strategy{
		NewMemoryLeakStrategy(deps.Memory),
		NewAPIRateLimitStrategy(deps.Rate),
		NewDiskSpaceStrategy(deps.Disk),
	}
	if deps.Pool != nil {
		all = append(all, NewDatabaseConnectionStrategy(deps.Pool))
	}
	if deps.Tokens != nil {
		all = append(all, NewAuthTokenStrategy(deps.Tokens))
	}
	if deps.Procs != nil {
		all = append(all, NewServiceRestartStrategy(deps.Procs, deps.DefaultService))
	}
	if deps.Content != nil {
		all = append(all, NewContentValidationStrategy(deps.Content))
	}

	for _, s := range all {
		if err := catalog.Register(s); err != nil {
			return err
		}
	}
	return nil
}
