package application

import (
	"context"
	"testing"
	"time"

	"github.com/JonMunkholm/ems/internal/config"
	"github.com/JonMunkholm/ems/internal/employee"
)

func TestServiceConfig(t *testing.T) {
	cfg := &config.Config{
		Upload: config.UploadConfig{
			MaxFileSize:   1024,
			MaxConcurrent: 3,
			MaxWaitTime:   time.Second,
			Timeout:       time.Minute,
			ResetTimeout:  2 * time.Second,
		},
		Page: config.PageConfig{DefaultSize: 10, MaxSize: 50},
	}
	got := ServiceConfig(cfg)
	if got.MaxFileSize != 1024 || got.MaxConcurrentImports != 3 || got.ImportWait != time.Second ||
		got.ImportTimeout != time.Minute || got.ResetTimeout != 2*time.Second ||
		got.DefaultPageSize != 10 || got.MaxPageSize != 50 {
		t.Errorf("ServiceConfig() = %+v", got)
	}
}

func TestNew_Memory(t *testing.T) {
	cfg := &config.Config{
		Store:  config.StoreConfig{Driver: config.DriverMemory},
		Upload: config.UploadConfig{MaxFileSize: 1 << 20, MaxConcurrent: 1, MaxWaitTime: time.Second},
		Page:   config.PageConfig{DefaultSize: 20, MaxSize: 100},
	}
	app, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer app.Close()

	e, err := app.Service.CreateEmployee(context.Background(), employee.Employee{FirstName: "A", LastName: "B", Email: "a@b.c"})
	if err != nil {
		t.Fatalf("CreateEmployee() error = %v", err)
	}
	if e.ID == 0 {
		t.Error("CreateEmployee() did not assign an id")
	}
}

func TestNew_UnknownDriver(t *testing.T) {
	if _, err := New(context.Background(), &config.Config{Store: config.StoreConfig{Driver: "oracle"}}); err == nil {
		t.Error("New() error = nil, want error")
	}
}
