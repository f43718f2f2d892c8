package cli

import (
	"github.com/mhalvorsen/skillsync/internal/archive"
	"github.com/mhalvorsen/skillsync/internal/config"
	"github.com/mhalvorsen/skillsync/internal/integrate"
	"github.com/mhalvorsen/skillsync/internal/observability"
	"github.com/mhalvorsen/skillsync/internal/queue"
	"github.com/mhalvorsen/skillsync/internal/workflow"
)

// Service instances, set during app initialization in app.go.
var (
	BasePath string
	Cfg      *config.EngineConfig

	Queue        queue.Queue
	Workflow     *workflow.Manager
	Integrations *integrate.Manager
	Archiver     archive.Archiver
	Skills       config.SkillLoader
	EventLog     observability.EventLog
)
