package service

import "errors"

// Service layer errors. Messages are shown to users as-is.

// ===== Authentication Errors =====
var (
	ErrInvalidCredentials    = errors.New("Email atau password salah")
	ErrEmailNotVerified      = errors.New("Email belum terverifikasi")
	ErrEmailAlreadyExists    = errors.New("Email sudah terdaftar")
	ErrUserNotFound          = errors.New("Pengguna tidak ditemukan")
	ErrInvalidEmail          = errors.New("Format email tidak valid")
	ErrNameRequired          = errors.New("Nama lengkap wajib diisi")
	ErrPasswordTooShort      = errors.New("Password minimal 8 karakter")
	ErrPasswordTooLong       = errors.New("Password maksimal 128 karakter")
	ErrPasswordMismatch      = errors.New("Konfirmasi password tidak sama")
	ErrCurrentPasswordWrong  = errors.New("Password saat ini salah")
	ErrCurrentPasswordNeeded = errors.New("Password saat ini wajib diisi")
	ErrAlreadyVerified       = errors.New("Akun sudah terverifikasi")
	ErrInvalidVerification   = errors.New("Token verifikasi tidak valid atau sudah kedaluwarsa")
	ErrInvalidOTP            = errors.New("Kode OTP salah atau sudah kedaluwarsa")
	ErrInvalidResetToken     = errors.New("Token reset tidak valid atau sudah kedaluwarsa")
	ErrUnauthorized          = errors.New("Sesi tidak valid, silakan masuk kembali")
)

// ===== Session Errors =====
var (
	ErrSessionNotFound = errors.New("Sesi tidak ditemukan")
	ErrSessionRequired = errors.New("Header X-Session-Token wajib diisi")
)

// ===== OAuth Errors =====
var (
	ErrOAuthNotConfigured = errors.New("Login Google belum dikonfigurasi")
	ErrInvalidOAuthState  = errors.New("State OAuth tidak valid")
	ErrInvalidAuthCode    = errors.New("Kode otorisasi tidak valid")
	ErrProviderError      = errors.New("Gagal menghubungi Google")
	ErrInvalidIDToken     = errors.New("ID token Google tidak valid")
	ErrNoPasswordToUnlink = errors.New("Atur password terlebih dahulu sebelum memutus akun Google")
	ErrGoogleNotLinked    = errors.New("Akun Google belum terhubung")
)

// ===== Mail Errors =====
var (
	ErrMailDelivery = errors.New("Gagal mengirim email, coba lagi nanti")
)

// ===== Profile Errors =====
var (
	ErrProfileNotFound  = errors.New("Profil tidak ditemukan")
	ErrUsernameTaken    = errors.New("Username sudah digunakan")
	ErrUnderage         = errors.New("Usia minimal 13 tahun")
	ErrSearchQueryEmpty = errors.New("Kata kunci pencarian wajib diisi")
)

// ===== Upload Errors =====
var (
	ErrFileRequired     = errors.New("File wajib diunggah")
	ErrFileTooLarge     = errors.New("Ukuran file melebihi batas")
	ErrUnsupportedMedia = errors.New("Tipe file tidak didukung")
	ErrTooManyFiles     = errors.New("Jumlah file melebihi batas")
	ErrInvalidMediaURL  = errors.New("URL media tidak valid")
	ErrMediaNotFound    = errors.New("File tidak ditemukan")
)

// ===== Post Errors =====
var (
	ErrPostNotFound     = errors.New("Post tidak ditemukan")
	ErrNotPostOwner     = errors.New("Anda tidak memiliki akses ke post ini")
	ErrContentRequired  = errors.New("Konten wajib diisi")
	ErrContentTooLong   = errors.New("Konten maksimal 10000 kata")
	ErrPostTitleTooLong = errors.New("Judul maksimal 200 karakter")
	ErrInvalidPostType  = errors.New("Tipe post tidak valid")
	ErrAlreadyBookmark  = errors.New("Post sudah di-bookmark")
	ErrBookmarkNotFound = errors.New("Bookmark tidak ditemukan")
)

// ===== Comment Errors =====
var (
	ErrCommentNotFound = errors.New("Komentar tidak ditemukan")
	ErrNotCommentOwner = errors.New("Anda tidak memiliki akses ke komentar ini")
	ErrInvalidParent   = errors.New("Parent comment tidak valid")
	ErrCommentRequired = errors.New("Komentar wajib diisi")
	ErrCommentTooLong  = errors.New("Komentar maksimal 2000 karakter")
)

// ===== Follow Errors =====
var (
	ErrCannotFollowSelf     = errors.New("Tidak dapat mengikuti diri sendiri")
	ErrAlreadyFollowing     = errors.New("Anda sudah mengikuti pengguna ini")
	ErrFollowRequestMissing = errors.New("Permintaan mengikuti tidak ditemukan")
	ErrNotFollowTarget      = errors.New("Permintaan ini bukan untuk Anda")
	ErrFollowNotPending     = errors.New("Permintaan sudah diproses")
	ErrFollowNotFound       = errors.New("Anda tidak mengikuti pengguna ini")
)

// ===== Notification Errors =====
var (
	ErrNotificationNotFound = errors.New("Notifikasi tidak ditemukan")
	ErrInvalidNotifType     = errors.New("Tipe notifikasi tidak valid")
)

// ===== Message Errors =====
var (
	ErrConversationNotFound = errors.New("Percakapan tidak ditemukan")
	ErrNotParticipant       = errors.New("Anda bukan peserta percakapan ini")
	ErrNotMutual            = errors.New("Kamu harus saling mengikuti untuk mengirim pesan")
	ErrSelfConversation     = errors.New("Tidak dapat mengirim pesan ke diri sendiri")
	ErrRecipientRequired    = errors.New("conversationId atau recipientId wajib diisi")
	ErrMessageEmpty         = errors.New("Konten pesan atau media wajib diisi")
	ErrMessageNotFound      = errors.New("Pesan tidak ditemukan")
	ErrNotMessageSender     = errors.New("Hanya pengirim yang dapat menghapus pesan")
)

// ===== Story Errors =====
var (
	ErrStoryNotFound  = errors.New("Story tidak ditemukan")
	ErrNotStoryOwner  = errors.New("Anda tidak memiliki akses ke story ini")
	ErrStoryExpired   = errors.New("Story sudah kedaluwarsa")
	ErrStoryTooLong   = errors.New("Durasi video story maksimal 120 detik")
	ErrCaptionTooLong = errors.New("Caption maksimal 500 karakter")
)

// ===== Video Errors =====
var (
	ErrVideoNotFound    = errors.New("Video tidak ditemukan")
	ErrVideoTitleLength = errors.New("Judul video maksimal 120 karakter")
	ErrVideoDescLength  = errors.New("Deskripsi video maksimal 10000 kata")
	ErrVideoTags        = errors.New("Tag hanya boleh huruf kecil, angka dan garis bawah, maksimal 30 karakter dan 10 tag")
	ErrProbeFailed      = errors.New("Gagal membaca metadata video")
	ErrTranscodeFailed  = errors.New("Gagal memproses video")
)

// ===== Alkitab Errors =====
var (
	ErrBookNotFound    = errors.New("Kitab tidak ditemukan")
	ErrChapterNotFound = errors.New("Pasal tidak ditemukan")
	ErrVerseNotFound   = errors.New("Ayat tidak ditemukan")
	ErrKeywordRequired = errors.New("Kata kunci wajib diisi")
)

// ===== Blog Errors =====
var (
	ErrBlogNotFound        = errors.New("Artikel tidak ditemukan")
	ErrSlugTaken           = errors.New("Slug sudah digunakan")
	ErrInvalidSlug         = errors.New("Slug tidak valid")
	ErrInvalidDate         = errors.New("Format tanggal tidak valid")
	ErrPublishedAtRequired = errors.New("publishedAt wajib diisi untuk status SCHEDULED")
	ErrInvalidBlogCategory = errors.New("Kategori blog tidak valid")
	ErrInvalidBlogStatus   = errors.New("Status blog tidak valid")
	ErrInvalidReadTime     = errors.New("readTimeMinutes harus lebih besar dari 0")
	ErrBlogTitleRequired   = errors.New("Judul wajib diisi")
)

// ===== Admin Errors =====
var (
	ErrCannotDemoteSelf = errors.New("Tidak dapat mengubah role akun sendiri")
	ErrCannotDeleteSelf = errors.New("Tidak dapat menghapus akun sendiri")
)
