package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"math/rand"
	"net/http"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"postboard/pkg/category"
	"postboard/pkg/comment"
	"postboard/pkg/config"
	"postboard/pkg/docstore"
	"postboard/pkg/logger"
	"postboard/pkg/middleware"
	"postboard/pkg/post"
	"postboard/pkg/sessions"
)

func init() {
	rand.Seed(time.Now().UnixNano())
}

func main() {
	tokenFor := flag.String("token-for", "", "issue a session token for `id:username` and exit")
	flag.Parse()

	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatalln("main: bad configuration:", err)
	}
	zapLogger := logger.Run(cfg.LogLevel)
	defer zapLogger.Sync() // nolint:errcheck

	redisPool := &redis.Pool{
		MaxIdle:     10,
		IdleTimeout: 240 * time.Second,
		Dial: func() (redis.Conn, error) {
			return redis.DialURL(cfg.RedisAddr)
		},
	}
	defer redisPool.Close()
	sessionManager := sessions.NewSessionManager(cfg.SecretKey, redisPool)

	if *tokenFor != "" {
		issueToken(sessionManager, *tokenFor)
		return
	}

	mongoCtx, mongoCtxCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer mongoCtxCancel()
	mongoClient, err := mongo.Connect(mongoCtx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalln("main: can't connect to MongoDB,", err)
	}
	if err := mongoClient.Ping(mongoCtx, nil); err != nil {
		log.Fatalln("main: unable to connect to MongoDB,", err)
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			log.Fatalln("main: failed disconnecting from MongoDB, ", err)
		}
	}()

	var categories category.Source = category.Static(category.Defaults)
	if cfg.PostgresDSN != "" {
		db, err := sql.Open("pgx", cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("main: unable to open PostgreSQL: %v", err)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			log.Fatalf("main: unable to reach PostgreSQL: %v", err)
		}
		categories = category.NewCategoryRepo(db)
	}

	store := docstore.NewMongoStore(mongoClient.Database(cfg.MongoDB))
	commentRepo := comment.NewCommentRepo(store)
	postService := post.NewService(post.NewPostRepo(store), commentRepo, cfg.WriteRetries, cfg.StoreTimeout)
	commentService := comment.NewService(commentRepo, postService, cfg.WriteRetries, cfg.StoreTimeout)

	if cfg.Seed {
		seed(postService, categories)
	}

	postHandler := post.NewPostHandler(postService)
	commentHandler := comment.NewCommentHandler(commentService)
	categoryHandler := category.NewCategoryHandler(categories)

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()

	// Posts
	api.HandleFunc("/posts", postHandler.List).Methods("GET")
	api.HandleFunc("/posts", postHandler.Add).Methods("POST")
	api.HandleFunc("/posts/{post_id}", postHandler.Get).Methods("GET")
	api.HandleFunc("/posts/{post_id}", postHandler.Update).Methods("PUT")
	api.HandleFunc("/posts/{post_id}", postHandler.Delete).Methods("DELETE")
	api.HandleFunc("/posts/{post_id}/{vote:upvote|downvote}", postHandler.Vote).Methods("POST")
	api.HandleFunc("/users/{user_id}/posts", postHandler.GetByUser).Methods("GET")
	api.HandleFunc("/categories", categoryHandler.List).Methods("GET")

	// Comments
	api.HandleFunc("/posts/{post_id}/comments", postHandler.Comments).Methods("GET")
	api.HandleFunc("/posts/{post_id}/comments", postHandler.AddComment).Methods("POST")
	api.HandleFunc("/posts/{post_id}/comments/reconcile", postHandler.ReconcileComments).Methods("POST")
	api.HandleFunc("/comments/{comment_id}", commentHandler.Get).Methods("GET")
	api.HandleFunc("/comments/{comment_id}", commentHandler.Update).Methods("PUT")
	api.HandleFunc("/comments/{comment_id}", commentHandler.Delete).Methods("DELETE")
	api.HandleFunc("/comments/{comment_id}/{vote:upvote|downvote}", commentHandler.Vote).Methods("POST")

	logMiddleware := middleware.NewLoggingMiddleware(zapLogger)
	auth := middleware.NewAuthMiddleware(sessionManager)
	r.Use(logMiddleware.SetupTracing)
	r.Use(logMiddleware.SetupLogging)
	r.Use(logMiddleware.AccessLog)
	r.Use(logMiddleware.Recover)
	r.Use(auth.Middleware)

	zapLogger.Infof("serving at %s", cfg.HTTPAddr)
	log.Fatalln(http.ListenAndServe(cfg.HTTPAddr, r))
}
