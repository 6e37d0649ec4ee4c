// Package service implements the business logic of the Renunganku API.
//
// Services sit between the HTTP handlers and the repositories. They validate
// input, enforce ownership, and fan realtime events out through a Publisher.
//
// # Service Pattern
//
//   - Constructor function (NewXxxService) accepts a config struct with its dependencies
//   - Methods implement one user-facing operation each
//   - Errors are returned as sentinel errors, wrapped with %w when detail helps
//   - Context is passed through for cancellation and request-scoped values
//
// # Repository Interfaces
//
// Services define the repository interfaces they consume, so tests run against
// map-backed fakes and the package never imports the repository layer.
//
// # Identifiers
//
// Repositories return full record ids such as "user:abc". Callers may pass
// either form; fullID and sameID normalize before comparing.
//
// # Error Handling
//
// Sentinel errors carry the Indonesian message shown to users:
//
//	var (
//	    ErrPostNotFound = errors.New("Post tidak ditemukan")
//	    ErrNotPostOwner = errors.New("Anda tidak memiliki akses ke post ini")
//	)
//
// # Example Usage
//
//	posts := NewPostService(PostServiceConfig{
//	    Repo:      postRepository,
//	    Follows:   followRepository,
//	    Summaries: profileRepository,
//	    Media:     mediaStore,
//	    Publisher: hub,
//	})
//	post, err := posts.Create(ctx, userID, model.CreatePostRequest{Content: "Syukur hari ini #doa"}, nil)
package service
