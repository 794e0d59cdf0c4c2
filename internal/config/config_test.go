package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/gridmeter/internal/meter"
)

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, &Config{}, cfg)
}

func TestDefaults(t *testing.T) {
	cfg := &Config{}

	loc, err := cfg.GetLocation()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Kiev", loc.String())
	assert.Equal(t, "data.db", cfg.GetDBPath())
	assert.Equal(t, ":8080", cfg.GetHTTPAddr())
	assert.Equal(t, "pictures", cfg.Report.GetPictureDir())
	assert.Equal(t, "kWh", cfg.Report.GetUnit())
	assert.Equal(t, time.Duration(0), cfg.Report.GetHourlyWindow())
	assert.Equal(t, "electric_meter", cfg.MQTT.GetTopicPrefix())
	assert.Equal(t, "hourly-deltas", cfg.Kafka.GetTopic())

	weights, err := cfg.GetWeights()
	require.NoError(t, err)
	assert.Equal(t, meter.DefaultWeights, weights)

	assert.False(t, cfg.IsAdmin(0), "no admin configured")
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `timezone: UTC
db_path: /var/lib/gridmeter/meter.db
admin_id: 1234
http_addr: 127.0.0.1:9000
report:
  picture_dir: /tmp/charts
  hourly_chart: true
mqtt:
  enabled: true
  broker: localhost:1883
  topic_prefix: home/meter
kafka:
  enabled: true
  brokers: [kafka-1:9092, kafka-2:9092]
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	loc, err := cfg.GetLocation()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
	assert.Equal(t, "/var/lib/gridmeter/meter.db", cfg.GetDBPath())
	assert.Equal(t, "127.0.0.1:9000", cfg.GetHTTPAddr())
	assert.True(t, cfg.IsAdmin(1234))
	assert.False(t, cfg.IsAdmin(1))
	assert.Equal(t, "/tmp/charts", cfg.Report.GetPictureDir())
	assert.Equal(t, 7*24*time.Hour, cfg.Report.GetHourlyWindow())
	assert.Equal(t, "home/meter", cfg.MQTT.GetTopicPrefix())
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.False(t, cfg.HomeAssistant.Enabled)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timezone: [unterminated"), 0600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := &Config{Timezone: "UTC", AdminID: 7, Report: ReportConfig{HourlyDays: 3, HourlyChart: true}}
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
	assert.Equal(t, 3*24*time.Hour, loaded.Report.GetHourlyWindow())
}

func TestInvalidSettings(t *testing.T) {
	cfg := &Config{Timezone: "Mars/Olympus", Weights: []float64{1, 2, 3}}

	_, err := cfg.GetLocation()
	assert.Error(t, err)

	_, err = cfg.GetWeights()
	assert.ErrorIs(t, err, meter.ErrInvalidWeights)
}
