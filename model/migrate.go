package model

import "gorm.io/gorm"

// allModels lists every model to be auto-migrated.
var allModels = []interface{}{
	&Player{},
	&Guild{},
	&GuildMember{},
	&GuildBank{},
	&JoinRequest{},
	&LandClaim{},
	&Alliance{},
	&AllianceRequest{},
	&War{},
	&WarKill{},
	&CeasefireRequest{},
	&GuildTask{},
	&AuditLog{},
}

// AutoMigrate creates or updates all tables in the given database.
// Safe to call repeatedly.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(allModels...)
}
