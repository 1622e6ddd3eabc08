package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

var loadConfigOnce sync.Once
var configInstance AppConfig

func LoadConfig(path string) AppConfig {
	loadConfigOnce.Do(func() {
		viper.SetEnvPrefix("airsentry")
		viper.AutomaticEnv()
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		viper.SetConfigName("station")
		if path != "" {
			viper.AddConfigPath(path)
		}
		viper.AddConfigPath("config")
		viper.AddConfigPath("/config")
		setDefaults()
		if err := viper.ReadInConfig(); err != nil {
			// The station must boot with no config file at all.
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				panic(fmt.Errorf("fatal error config file: %w", err))
			}
		}
		configInstance = AppConfig{
			General: GeneralConfig{
				LogLevel:     viper.GetString("general.log_level"),
				DatabasePath: viper.GetString("general.database_path"),
			},
			HTTP: HTTPConfig{
				Addr:           viper.GetString("http.addr"),
				AllowedOrigins: viper.GetStringSlice("http.allowed_origins"),
			},
			MQTTClient: MQTTClientConfig{
				Enabled:     viper.GetBool("mqtt_client.enabled"),
				Broker:      viper.GetString("mqtt_client.broker"),
				ClientID:    viper.GetString("mqtt_client.client_id"),
				Username:    viper.GetString("mqtt_client.username"),
				Password:    viper.GetString("mqtt_client.password"),
				TopicPrefix: viper.GetString("mqtt_client.topic_prefix"),
			},
			Sensors: SensorsConfig{
				StartupDelay: viper.GetDuration("sensors.startup_delay"),
				QueueSize:    viper.GetInt("sensors.queue_size"),
				MCUTemp:      sensorConfig("mcu_temp"),
				Humidity:     sensorConfig("humidity"),
				Pressure:     sensorConfig("pressure"),
				Gas:          sensorConfig("gas"),
				Particulate:  sensorConfig("particulate"),
				CO2:          sensorConfig("co2"),
			},
			Fusion: FusionConfig{
				Interval:            viper.GetDuration("fusion.interval"),
				BaselineWindowStart: viper.GetInt("fusion.baseline_window_start_hour"),
				BaselineWindowEnd:   viper.GetInt("fusion.baseline_window_end_hour"),
				BaselineCommitSpec:  viper.GetString("fusion.baseline_commit_spec"),

				EnableTemperatureOffset: viper.GetBool("fusion.enable_temperature_offset"),
				EnablePMCorrection:      viper.GetBool("fusion.enable_pm_correction"),
				EnableCO2Pressure:       viper.GetBool("fusion.enable_co2_pressure"),
				EnableBaseline:          viper.GetBool("fusion.enable_baseline"),

				TemperatureOffsetC:   viper.GetFloat64("fusion.temperature_offset_c"),
				PMCoeffA:             viper.GetFloat64("fusion.pm_rh_coeff_a"),
				PMCoeffB:             viper.GetFloat64("fusion.pm_rh_coeff_b"),
				PMHumidityCeiling:    viper.GetFloat64("fusion.pm_humidity_ceiling"),
				ReferencePressureHPa: viper.GetFloat64("fusion.reference_pressure_hpa"),
				PressureMinHPa:       viper.GetFloat64("fusion.pressure_min_hpa"),
				PressureMaxHPa:       viper.GetFloat64("fusion.pressure_max_hpa"),
			},
			Metrics: MetricsConfig{
				Interval: viper.GetDuration("metrics.interval"),

				ComfortTargetTempC: viper.GetFloat64("metrics.comfort_target_temp_c"),
				ComfortTargetRH:    viper.GetFloat64("metrics.comfort_target_rh"),
				MoldSurfaceOffsetC: viper.GetFloat64("metrics.mold_surface_offset_c"),

				PressureSampleEvery:  viper.GetDuration("metrics.pressure_sample_every"),
				PressureWindow:       viper.GetDuration("metrics.pressure_window"),
				PressureThresholdHPa: viper.GetFloat64("metrics.pressure_threshold_hpa"),

				CO2SampleEvery: viper.GetDuration("metrics.co2_sample_every"),
				CO2RateWindow:  viper.GetDuration("metrics.co2_rate_window"),

				PMSampleEvery:      viper.GetDuration("metrics.pm_sample_every"),
				PMSpikeWindow:      viper.GetDuration("metrics.pm_spike_window"),
				PMSpikeThresholdUg: viper.GetFloat64("metrics.pm_spike_threshold_ug"),
			},
			Telemetry: TelemetryConfig{
				Interval: viper.GetDuration("telemetry.interval"),
			},
		}
	})

	return configInstance
}

func sensorConfig(name string) SensorConfig {
	return SensorConfig{
		Warmup: viper.GetDuration(fmt.Sprintf("sensors.%s.warmup", name)),
		Period: viper.GetDuration(fmt.Sprintf("sensors.%s.period", name)),
	}
}

func setDefaults() {
	viper.SetDefault("general.log_level", "info")
	viper.SetDefault("general.database_path", "airsentry.db")
	viper.SetDefault("http.addr", ":3000")
	viper.SetDefault("http.allowed_origins", []string{"*"})
	viper.SetDefault("mqtt_client.enabled", false)
	viper.SetDefault("mqtt_client.client_id", "airsentry-station")
	viper.SetDefault("mqtt_client.topic_prefix", "airsentry")
	viper.SetDefault("sensors.startup_delay", 2*time.Second)
	viper.SetDefault("sensors.queue_size", 16)
	viper.SetDefault("sensors.mcu_temp.warmup", 0*time.Second)
	viper.SetDefault("sensors.mcu_temp.period", 10*time.Second)
	viper.SetDefault("sensors.humidity.warmup", 2*time.Second)
	viper.SetDefault("sensors.humidity.period", 5*time.Second)
	viper.SetDefault("sensors.pressure.warmup", 2*time.Second)
	viper.SetDefault("sensors.pressure.period", 5*time.Second)
	viper.SetDefault("sensors.gas.warmup", 45*time.Second)
	viper.SetDefault("sensors.gas.period", time.Second)
	viper.SetDefault("sensors.particulate.warmup", 30*time.Second)
	viper.SetDefault("sensors.particulate.period", 5*time.Second)
	viper.SetDefault("sensors.co2.warmup", 60*time.Second)
	viper.SetDefault("sensors.co2.period", 15*time.Second)
	viper.SetDefault("fusion.interval", time.Second)
	viper.SetDefault("fusion.baseline_window_start_hour", 0)
	viper.SetDefault("fusion.baseline_window_end_hour", 5)
	viper.SetDefault("fusion.baseline_commit_spec", "0 6 * * *")
	viper.SetDefault("fusion.enable_temperature_offset", true)
	viper.SetDefault("fusion.enable_pm_correction", true)
	viper.SetDefault("fusion.enable_co2_pressure", true)
	viper.SetDefault("fusion.enable_baseline", true)
	viper.SetDefault("fusion.temperature_offset_c", 1.8)
	viper.SetDefault("fusion.pm_rh_coeff_a", 0.48)
	viper.SetDefault("fusion.pm_rh_coeff_b", 8.6)
	viper.SetDefault("fusion.pm_humidity_ceiling", 95.0)
	viper.SetDefault("fusion.reference_pressure_hpa", 1013.25)
	viper.SetDefault("fusion.pressure_min_hpa", 950.0)
	viper.SetDefault("fusion.pressure_max_hpa", 1060.0)
	viper.SetDefault("metrics.interval", 5*time.Second)
	viper.SetDefault("metrics.comfort_target_temp_c", 21.0)
	viper.SetDefault("metrics.comfort_target_rh", 45.0)
	viper.SetDefault("metrics.mold_surface_offset_c", 3.0)
	viper.SetDefault("metrics.pressure_sample_every", 150*time.Second)
	viper.SetDefault("metrics.pressure_window", 3*time.Hour)
	viper.SetDefault("metrics.pressure_threshold_hpa", 1.0)
	viper.SetDefault("metrics.co2_sample_every", time.Minute)
	viper.SetDefault("metrics.co2_rate_window", time.Hour)
	viper.SetDefault("metrics.pm_sample_every", 30*time.Second)
	viper.SetDefault("metrics.pm_spike_window", 5*time.Minute)
	viper.SetDefault("metrics.pm_spike_threshold_ug", 15.0)
	viper.SetDefault("telemetry.interval", 10*time.Second)
}

type AppConfig struct {
	General    GeneralConfig
	HTTP       HTTPConfig
	MQTTClient MQTTClientConfig
	Sensors    SensorsConfig
	Fusion     FusionConfig
	Metrics    MetricsConfig
	Telemetry  TelemetryConfig
}

type GeneralConfig struct {
	LogLevel     string
	DatabasePath string
}

type HTTPConfig struct {
	Addr           string
	AllowedOrigins []string
}

type MQTTClientConfig struct {
	Enabled     bool
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
}

type SensorConfig struct {
	Warmup time.Duration
	Period time.Duration
}

type SensorsConfig struct {
	StartupDelay time.Duration
	QueueSize    int
	MCUTemp      SensorConfig
	Humidity     SensorConfig
	Pressure     SensorConfig
	Gas          SensorConfig
	Particulate  SensorConfig
	CO2          SensorConfig
}

type FusionConfig struct {
	Interval            time.Duration
	BaselineWindowStart int
	BaselineWindowEnd   int
	BaselineCommitSpec  string

	EnableTemperatureOffset bool
	EnablePMCorrection      bool
	EnableCO2Pressure       bool
	EnableBaseline          bool

	TemperatureOffsetC   float64
	PMCoeffA             float64
	PMCoeffB             float64
	PMHumidityCeiling    float64
	ReferencePressureHPa float64
	PressureMinHPa       float64
	PressureMaxHPa       float64
}

type MetricsConfig struct {
	Interval time.Duration

	ComfortTargetTempC float64
	ComfortTargetRH    float64
	MoldSurfaceOffsetC float64

	PressureSampleEvery  time.Duration
	PressureWindow       time.Duration
	PressureThresholdHPa float64

	CO2SampleEvery time.Duration
	CO2RateWindow  time.Duration

	PMSampleEvery      time.Duration
	PMSpikeWindow      time.Duration
	PMSpikeThresholdUg float64
}

type TelemetryConfig struct {
	Interval time.Duration
}
