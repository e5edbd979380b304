// Package datetime reads Korean date and time expressions out of free text.
//
// It understands relative days (오늘, 내일, 모레, ...), weeks (이번 주, 다음 주),
// weekdays, calendar dates (3월 14일, 3/14, 2024-03-14), shifts (4일 뒤, 2주 전),
// parts of the day (아침, 점심, 저녁, ...) and clock times (오후 3시 반, 19:10).
// Spans are written as "A부터 B까지", "A ~ B", "B까지" or a single day/week.
//
// Extract* methods return the text with the recognized expression removed so
// callers can keep matching the rest of the message.
package datetime
