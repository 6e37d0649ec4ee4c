package model

// Testament groups books into Old (PL) and New (PB) Testament
type Testament string

const (
	TestamentOld Testament = "PL"
	TestamentNew Testament = "PB"
)

// Search limits
const (
	DefaultVerseSearchLimit = 20
	MaxVerseSearchLimit     = 100
)

// Book is one book of the Bible
type Book struct {
	ID            string    `json:"id"`
	Abbr          string    `json:"abbr"`
	Name          string    `json:"name"`
	Testament     Testament `json:"testament"`
	TotalChapters int       `json:"totalChapters"`
	Position      int       `json:"-"`
}

// Verse is a single numbered verse with an optional pericope title
type Verse struct {
	ID      string  `json:"id"`
	BookID  string  `json:"bookId,omitempty"`
	Chapter int     `json:"chapter,omitempty"`
	Number  int     `json:"number"`
	Text    string  `json:"text"`
	Title   *string `json:"title"`
}

// ChapterList is returned by GET /alkitab/books/{bookId}/chapters
type ChapterList struct {
	Book     *Book `json:"book"`
	Chapters []int `json:"chapters"`
}

// Chapter is a full chapter of text
type Chapter struct {
	Book    *Book    `json:"book"`
	Chapter int      `json:"chapter"`
	Verses  []*Verse `json:"verses"`
}

// VerseDetail is a single verse with its book
type VerseDetail struct {
	Book    *Book  `json:"book"`
	Chapter int    `json:"chapter"`
	Verse   *Verse `json:"verse"`
}

// VerseHit is a search result
type VerseHit struct {
	Book    *Book  `json:"book"`
	Chapter int    `json:"chapter"`
	Verse   *Verse `json:"verse"`
}
