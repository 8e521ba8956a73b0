package db

import (
	"errors"
	"path/filepath"
	"testing"

	"tournament_bot/internal/config"
	"tournament_bot/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestDialector(t *testing.T) {
	cfg := &config.Config{DBDriver: "mysql", DBUser: "u", DBPassword: "p", DBHost: "h", DBPort: "3306", DBName: "n"}
	d, err := Dialector(cfg)
	require.NoError(t, err)
	assert.Equal(t, "mysql", d.Name())

	cfg.DBDriver = "postgres"
	d, err = Dialector(cfg)
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())

	cfg.DBDriver = "mssql"
	_, err = Dialector(cfg)
	assert.Error(t, err)
}

func TestGormConfigUsesUTC(t *testing.T) {
	log, _ := logtest.NewNullLogger()
	c := GormConfig(log, false)
	assert.True(t, c.TranslateError)
	assert.Equal(t, "UTC", c.NowFunc().Location().String())
}

func TestGormLogsSkipMissingRows(t *testing.T) {
	log, hook := logtest.NewNullLogger()
	gdb, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "log.db")), GormConfig(log, false))
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&domain.User{}))
	hook.Reset()

	var u domain.User
	err = gdb.First(&u, "telegram_id = ?", 404).Error
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
	assert.Empty(t, hook.AllEntries())

	require.Error(t, gdb.Table("missing_table").First(&u).Error)
	require.NotEmpty(t, hook.AllEntries())
	assert.Equal(t, "gorm", hook.LastEntry().Data["component"])
	assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
}
