// Package health reports whether the session client's dependencies are
// reachable: the auth API and whichever store servers are configured.
package health

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	StatusOK        = "ok"
	StatusUnhealthy = "unhealthy"
	StatusDegraded  = "degraded"
)

const defaultTimeout = 3 * time.Second

// Probe checks one dependency.
type Probe func(ctx context.Context) error

type DependencyStatus struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type Report struct {
	Status       string             `json:"status"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// Healthy reports whether every dependency answered.
func (r Report) Healthy() bool { return r.Status == StatusOK }

// Checker runs a set of named probes.
type Checker struct {
	probes  map[string]Probe
	timeout time.Duration
}

func NewChecker(timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Checker{probes: make(map[string]Probe), timeout: timeout}
}

// Add registers p under name, replacing any previous probe of that name.
func (c *Checker) Add(name string, p Probe) *Checker {
	c.probes[name] = p
	return c
}

// Check runs every probe concurrently, bounded by the checker timeout.
func (c *Checker) Check(ctx context.Context) Report {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		deps = make([]DependencyStatus, 0, len(c.probes))
	)
	for name, probe := range c.probes {
		wg.Add(1)
		go func(name string, probe Probe) {
			defer wg.Done()
			st := DependencyStatus{Name: name, Status: StatusOK}
			if err := probe(ctx); err != nil {
				st.Status = StatusUnhealthy
				st.Error = err.Error()
			}
			mu.Lock()
			deps = append(deps, st)
			mu.Unlock()
		}(name, probe)
	}
	wg.Wait()

	sort.Slice(deps, func(i, j int) bool { return deps[i].Name < deps[j].Name })

	status := StatusOK
	for _, d := range deps {
		if d.Status != StatusOK {
			status = StatusDegraded
			break
		}
	}
	return Report{Status: status, Dependencies: deps}
}

// RedisProbe pings a Redis server.
func RedisProbe(rdb *redis.Client) Probe {
	return func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}
}

// MongoProbe pings the server and runs a command against db.
func MongoProbe(db *mongo.Database) Probe {
	return func(ctx context.Context) error {
		if err := db.Client().Ping(ctx, nil); err != nil {
			return err
		}
		return db.RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err()
	}
}

// HTTPProbe treats any non-5xx answer from url as reachable.
func HTTPProbe(client *http.Client, url string) Probe {
	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		resp.Body.Close()
		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("auth api answered %d", resp.StatusCode)
		}
		return nil
	}
}
