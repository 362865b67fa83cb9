package shelf

import (
	"database/sql"
	"fmt"
	"time"

	"scrivener/internal/timeline"
)

const bookColumns = "id, title, author, synopsis, created_at, updated_at"

const chapterColumns = "id, book_id, position, title, goal, status, content, progress_message, error_message, protagonist, place, opens, closes, created_at, updated_at, last_heartbeat"

type rowScanner interface{ Scan(dest ...any) error }

func scanBook(scanner rowScanner) (*Book, error) {
	var (
		book       Book
		author     sql.NullString
		synopsis   sql.NullString
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(&book.ID, &book.Title, &author, &synopsis, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	book.Author = author.String
	book.Synopsis = synopsis.String
	if created, err := parseTimeString(createdRaw); err == nil {
		book.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		book.UpdatedAt = updated
	}
	return &book, nil
}

func scanChapter(scanner rowScanner) (*Chapter, error) {
	var (
		chapter      Chapter
		goal         sql.NullString
		statusStr    string
		progress     sql.NullString
		errMessage   sql.NullString
		protagonist  sql.NullString
		place        sql.NullString
		opensRaw     sql.NullString
		closesRaw    sql.NullString
		createdRaw   string
		updatedRaw   string
		heartbeatRaw sql.NullString
	)
	if err := scanner.Scan(
		&chapter.ID,
		&chapter.BookID,
		&chapter.Position,
		&chapter.Title,
		&goal,
		&statusStr,
		&chapter.Content,
		&progress,
		&errMessage,
		&protagonist,
		&place,
		&opensRaw,
		&closesRaw,
		&createdRaw,
		&updatedRaw,
		&heartbeatRaw,
	); err != nil {
		return nil, err
	}

	chapter.Goal = goal.String
	chapter.Status = Status(statusStr)
	chapter.ProgressMessage = progress.String
	chapter.ErrorMessage = errMessage.String
	chapter.Protagonist = protagonist.String
	chapter.Place = place.String

	if opensRaw.Valid && opensRaw.String != "" {
		opens, err := timeline.ParseDate(opensRaw.String)
		if err != nil {
			return nil, fmt.Errorf("parse chapter opens date: %w", err)
		}
		chapter.Opens = &opens
	}
	if closesRaw.Valid && closesRaw.String != "" {
		closes, err := timeline.ParseDate(closesRaw.String)
		if err != nil {
			return nil, fmt.Errorf("parse chapter closes date: %w", err)
		}
		chapter.Closes = &closes
	}

	if created, err := parseTimeString(createdRaw); err == nil {
		chapter.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		chapter.UpdatedAt = updated
	}
	if heartbeatRaw.Valid {
		if heartbeat, err := parseTimeString(heartbeatRaw.String); err == nil {
			chapter.LastHeartbeat = &heartbeat
		}
	}
	return &chapter, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableDate(value *timeline.Date) any {
	if value == nil {
		return nil
	}
	return value.String()
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty time value")
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time format %q", value)
}
