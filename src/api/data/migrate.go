package data

import (
	"fmt"

	"github.com/stake-plus/getfunded/src/api/types"
	"gorm.io/gorm"
)

var allModels = []interface{}{
	&types.Pitch{}, &types.ChatMessage{}, &types.VcAgent{},
	&types.Disbursement{}, &types.Setting{},
}

const defaultAgentPrompt = `You are Kaido, a blunt but fair AI venture capitalist who has sat through thousands of pitches.

Style:
- Direct, no filler
- Press on weak assumptions and hand-waving
- Say so when something is genuinely strong
- Give concrete, actionable feedback

Weigh problem clarity and size, how defensible the solution is, market size and timing,
traction, and team-market fit.

You score from 0 to 10. Scores of 8 or higher are reserved for pitches with strong fundamentals.`

// Migrate creates or updates the schema and seeds the default agent. It runs
// once at startup, before the HTTP server accepts requests.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(allModels...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return SeedDefaultAgent(db)
}

func SeedDefaultAgent(db *gorm.DB) error {
	var agent types.VcAgent
	return db.Where(types.VcAgent{ID: types.DefaultAgentID}).
		Attrs(types.VcAgent{
			Name:              "Kaido",
			Handle:            "kaido",
			TwitterHandle:     "whistler_agent",
			PersonalityPrompt: defaultAgentPrompt,
			IsActive:          true,
		}).
		FirstOrCreate(&agent).Error
}
