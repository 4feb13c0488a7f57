package mtsched_internal

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/huandu/go-clone"
)

type LoadConfigTestCase struct {
	Name              string
	Description       string
	ToSectionName     string
	ToCfg             any
	Data              string
	WantMtschedConfig *MtschedConfig
	WantToCfg         any
	WantErr           error
}

type EmbedderConfigTest struct {
	Id      string `yaml:"id"`
	Enabled bool   `yaml:"enabled"`
}

func defaultEmbedderConfig() *EmbedderConfigTest {
	return &EmbedderConfigTest{Id: "embedder", Enabled: true}
}

func testLoadConfig(t *testing.T, tc *LoadConfigTestCase) {
	if tc.Description != "" {
		t.Log(tc.Description)
	}
	toCfg := clone.Clone(tc.ToCfg)
	gotMtschedConfig, err := LoadConfig(
		"", tc.ToSectionName, toCfg, []byte(strings.ReplaceAll(tc.Data, "\t", "  ")),
	)
	if tc.WantErr == nil && err != nil {
		t.Fatal(err)
	}
	if tc.WantErr != nil && err == nil {
		t.Fatalf("err: want %v, got nil", tc.WantErr)
	}

	if diff := cmp.Diff(tc.WantMtschedConfig, gotMtschedConfig); diff != "" {
		t.Fatalf("MtschedConfig mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff(tc.WantToCfg, toCfg); diff != "" {
		t.Fatalf("toCfg mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadMtschedConfig(t *testing.T) {
	embedderData := `
		embedder:
			id: custom
			enabled: false
	`
	ignoredData := `
		ignore:
			foo: bar
	`

	name1 := "log_config"
	data1 := `
		mtsched_config:
			log_config:
				level: debug
	`
	cfg1 := DefaultMtschedConfig()
	cfg1.LoggerConfig.Level = "debug"

	name2 := "scheduler_config"
	data2 := `
		mtsched_config:
			scheduler_config:
				initial_mode: sequential
	`
	cfg2 := DefaultMtschedConfig()
	cfg2.SchedulerConfig.InitialMode = "sequential"

	for _, tc := range []*LoadConfigTestCase{
		{
			Name:              "default",
			WantMtschedConfig: DefaultMtschedConfig(),
		},
		{
			Name: "mtsched_config_empty",
			Data: `
				mtsched_config:
			`,
			WantMtschedConfig: DefaultMtschedConfig(),
		},
		{
			Name:              name1,
			Data:              data1,
			WantMtschedConfig: cfg1,
		},
		{
			Name:              name2,
			Data:              data2,
			WantMtschedConfig: cfg2,
		},
		{
			Name:              name1 + "_plus_embedder",
			Data:              data1 + embedderData,
			WantMtschedConfig: cfg1,
		},
		{
			Name:              "embedder_plus_" + name1,
			Data:              embedderData + data1,
			WantMtschedConfig: cfg1,
		},
		{
			Name:              name1 + "_plus_ignored",
			Data:              data1 + ignoredData,
			WantMtschedConfig: cfg1,
		},
	} {
		t.Run(tc.Name, func(t *testing.T) { testLoadConfig(t, tc) })
	}
}

func TestLoadEmbedderConfig(t *testing.T) {
	data := `
		embedder:
			id: custom
			enabled: false
	`
	wantToCfg := defaultEmbedderConfig()
	wantToCfg.Id = "custom"
	wantToCfg.Enabled = false
	tc := &LoadConfigTestCase{
		Name:              "embedder_config",
		Description:       "Test decoding an embedding application's own top-level section",
		ToSectionName:     "embedder",
		ToCfg:             defaultEmbedderConfig(),
		Data:              data,
		WantMtschedConfig: DefaultMtschedConfig(),
		WantToCfg:         wantToCfg,
		WantErr:           nil,
	}
	t.Run(tc.Name, func(t *testing.T) { testLoadConfig(t, tc) })
}
