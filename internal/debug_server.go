package internal

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"campus-lab/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/shirou/gopsutil/process"
)

//go:embed inspect.html
var templatesFS embed.FS

var (
	resumeChan  = make(chan struct{}, 1)
	currentPort int
)

type InspectRow struct {
	Key        string
	Collection string
	Timestamp  string
	EntityID   string
	Detail     string
	Extra      string
}

type RowMapper func(key string, val []byte) InspectRow
type StatsProvider func() map[string]any

type PageData struct {
	Prefix string
	Items  []InspectRow
	Stats  map[string]any
}

func Inspect(db *badger.DB, port int, endpoint string, mapper RowMapper, statsProvider StatsProvider, prefix string, fn func()) {
	StartDebugServer(db, port, endpoint, mapper, statsProvider)

	if fn != nil {
		fn()
	}

	Wait(prefix)
}

func StartDebugServer(db *badger.DB, port int, endpoint string, mapper RowMapper, statsProvider StatsProvider) {
	currentPort = port
	mux := http.NewServeMux()
	tmpl := template.Must(template.ParseFS(templatesFS, "inspect.html"))

	if mapper == nil {
		mapper = DefaultMapper
	}

	mux.HandleFunc(endpoint, func(w http.ResponseWriter, r *http.Request) {
		prefix := r.URL.Query().Get("prefix")
		if prefix == "" {
			prefix = "course:"
		}

		data := PageData{
			Prefix: prefix,
			Stats:  make(map[string]any),
		}

		if statsProvider != nil {
			data.Stats = statsProvider()
		}

		_ = db.View(func(txn *badger.Txn) error {
			it := txn.NewIterator(badger.DefaultIteratorOptions)
			defer it.Close()
			for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
				item := it.Item()
				_ = item.Value(func(val []byte) error {
					data.Items = append(data.Items, mapper(string(item.Key()), val))
					return nil
				})
			}
			return nil
		})

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = tmpl.Execute(w, data)
	})

	mux.HandleFunc("/resume", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-resumeChan:
		default:
		}
		resumeChan <- struct{}{}
		fmt.Fprint(w, "RESUMED")
	})

	go func() {
		// Listen on every interface so the page is reachable over the network
		_ = http.ListenAndServe(fmt.Sprintf("0.0.0.0:%d", port), mux)
	}()
}

func Wait(prefix string) {
	url := fmt.Sprintf("http://localhost:%d/inspect?prefix=%s", currentPort, prefix)
	fmt.Printf("\n--- PAUSED ---\n\n%s\n\n--------------\n", url)
	<-resumeChan
}

// ProcessStats reports the CPU and memory footprint of this process,
// for the dashboard header.
func ProcessStats(db *badger.DB) StatsProvider {
	return func() map[string]any {
		stats := map[string]any{
			"Time": time.Now().Format(time.RFC822),
		}
		if db != nil {
			lsm, vlog := db.Size()
			stats["LSM Size"] = fmt.Sprintf("%d KB", lsm/1024)
			stats["VLog Size"] = fmt.Sprintf("%d KB", vlog/1024)
		}
		p, err := process.NewProcess(int32(os.Getpid()))
		if err != nil {
			return stats
		}
		if cpu, err := p.CPUPercent(); err == nil {
			stats["CPU"] = fmt.Sprintf("%.1f%%", cpu)
		}
		if ram, err := p.MemoryPercent(); err == nil {
			stats["RAM"] = fmt.Sprintf("%.1f%%", ram)
		}
		return stats
	}
}

// CampusMapper renders the document collections of the platform. The
// key layout tells the collection apart; the value is the JSON document.
func CampusMapper(key string, val []byte) InspectRow {
	switch {
	case strings.HasPrefix(key, "course:"):
		var fields domain.CourseFields
		if err := json.Unmarshal(val, &fields); err == nil {
			return InspectRow{
				Key:        key,
				Collection: "COURSE",
				Timestamp:  fields.UpdatedAt.Format("15:04:05"),
				EntityID:   shortID(fields.ID),
				Detail:     fields.Title,
				Extra:      fmt.Sprintf("%s %d/%d", fields.Status, len(fields.EnrolledStudents), fields.MaxEnrollment),
			}
		}
	case strings.HasPrefix(key, "user:"):
		var fields domain.UserFields
		if err := json.Unmarshal(val, &fields); err == nil {
			return InspectRow{
				Key:        key,
				Collection: "USER",
				Timestamp:  "--:--:--",
				EntityID:   shortID(fields.ID),
				Detail:     fields.Name,
				Extra:      fmt.Sprintf("%s courses=%d", fields.Role, len(fields.EnrolledCourses)),
			}
		}
	case strings.HasPrefix(key, "chat:"):
		var fields domain.ChatFields
		if err := json.Unmarshal(val, &fields); err == nil {
			return InspectRow{
				Key:        key,
				Collection: "CHAT",
				Timestamp:  fields.UpdatedAt.Format("15:04:05"),
				EntityID:   shortID(fields.ID),
				Detail:     fields.Title,
				Extra:      fmt.Sprintf("%s participants=%d", fields.Type, len(fields.ParticipantIDs)),
			}
		}
	case strings.HasPrefix(key, "msg:"):
		var fields domain.MessageFields
		if err := json.Unmarshal(val, &fields); err == nil {
			return InspectRow{
				Key:        key,
				Collection: "MESSAGE",
				Timestamp:  fields.Timestamp.Format("15:04:05"),
				EntityID:   shortID(fields.ID),
				Detail:     fields.Content,
				Extra:      fmt.Sprintf("%s %s", fields.Type, fields.Status),
			}
		}
	case strings.HasPrefix(key, "post:"):
		var fields domain.PostFields
		if err := json.Unmarshal(val, &fields); err == nil {
			return InspectRow{
				Key:        key,
				Collection: "POST",
				Timestamp:  fields.Timestamp.Format("15:04:05"),
				EntityID:   shortID(fields.ID),
				Detail:     fields.Content,
				Extra:      fmt.Sprintf("likes=%d comments=%d", fields.LikeCount, fields.CommentCount),
			}
		}
	case strings.HasPrefix(key, "comment:"):
		var fields domain.CommentFields
		if err := json.Unmarshal(val, &fields); err == nil {
			return InspectRow{
				Key:        key,
				Collection: "COMMENT",
				Timestamp:  fields.Timestamp.Format("15:04:05"),
				EntityID:   shortID(fields.ID),
				Detail:     fields.Content,
				Extra:      fmt.Sprintf("post=%s edited=%t", shortID(fields.PostID), fields.IsEdited),
			}
		}
	}
	return DefaultMapper(key, val)
}

func DefaultMapper(key string, val []byte) InspectRow {
	parts := strings.Split(key, ":")
	row := InspectRow{
		Key:        key,
		Collection: "RAW",
		Timestamp:  "--:--:--",
		EntityID:   "--------",
		Detail:     "Size: " + strconv.Itoa(len(val)) + " bytes",
		Extra:      "-",
	}

	if len(parts) >= 3 {
		if tsNano, err := strconv.ParseInt(parts[len(parts)-2], 10, 64); err == nil {
			row.Timestamp = time.Unix(0, tsNano).Format("15:04:05")
		}
		row.EntityID = shortID(parts[len(parts)-1])
	}
	return row
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
