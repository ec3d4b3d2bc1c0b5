package boot

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"os"
	"path"
	"pitchconnect/src/common"
	"pitchconnect/src/db"
	"pitchconnect/src/lib"
	awslib "pitchconnect/src/lib/aws"
	"pitchconnect/src/models"
	"pitchconnect/src/utils"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"gorm.io/gorm"
)

func InitDb() *gorm.DB {
	db := db.GetDb()

	err := db.AutoMigrate(
		&models.User{},
		&models.Club{},
		&models.Membership{},
		&models.Team{},
		&models.TeamPlayer{},
		&models.JoinRequest{},
		&models.JobPosting{},
		&models.JobApplication{},
		&models.MediaAsset{},
		&models.Announcement{},
		&models.Contract{},
		&models.Injury{},
		&models.TrainingSession{},
		&models.Match{},
	)
	if err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}

	return db
}

// InitScheduler registers the maintenance sweeps and starts the cron
// runner. Each sweep is idempotent so overlapping runs are harmless.
func InitScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Println("An error has occurred. Check logs for info")
		return
	}
	if _, err := lib.CreateCronJob(func() {
		common.ExpireOldJoinRequests()
	}, time.Hour); err != nil {
		log.Printf("Error scheduling join request sweep: %s\n", err.Error())
	}
	if _, err := lib.CreateCronJob(func() {
		common.CloseExpiredJobPostings()
	}, time.Hour); err != nil {
		log.Printf("Error scheduling job posting sweep: %s\n", err.Error())
	}
	if _, err := lib.CreateCronJob(func() {
		common.ExpireContracts()
	}, 24*time.Hour); err != nil {
		log.Printf("Error scheduling contract sweep: %s\n", err.Error())
	}
	log.Println("Jobs in queue:", len(sched.Jobs()))
	sched.Start()
}

func StopScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Println("Error retrieving Scheduler. Check logs for info")
		return
	}
	err = sched.Shutdown()
	if err != nil {
		log.Println("An error has occurred while stopping Scheduler. Check logs for info")
		return
	}
}

// InitBroker wires the async pipelines: the media fan-out subscription,
// the media results queue and, on local setups, the kafka-backed email
// queue.
func InitBroker() {
	go lib.KafkaCreateTopics(utils.WithSuffix("club-events"))
	if sub := awslib.NewSNSSubscriber(utils.WithSuffix("MediaToProcess")); sub != nil {
		if _, err := sub.Subscribe("sqs", lib.GetQueueArn(utils.WithSuffix("MediaJobs"))); err != nil {
			log.Printf("Error subscribing transcoder queue: %s\n", err.Error())
		}
	}
	consumer := awslib.NewSQSConsumer(utils.WithSuffix("MediaResults"), common.MediaResultsHandler)
	consumer.Listen()
	if os.Getenv("API_ENV") == "local" {
		lib.KafkaConsumer("mailer", []string{utils.WithSuffix(os.Getenv("EMAIL_QUEUE"))}, deliverQueuedMail)
	}
}

func deliverQueuedMail(payload string) {
	var input struct {
		From     string   `json:"from"`
		FromName string   `json:"from-name"`
		To       []string `json:"to"`
		Subject  string   `json:"subject"`
		Body     string   `json:"body"`
		Html     bool     `json:"html"`
	}
	if err := json.Unmarshal([]byte(payload), &input); err != nil {
		log.Printf("[mailer] Error parsing queued mail: %s\n", err.Error())
		return
	}
	if err := lib.SendMail(&lib.SendMailInput{
		From:     input.From,
		FromName: input.FromName,
		To:       input.To,
		Subject:  input.Subject,
		Body:     input.Body,
		Html:     input.Html,
	}); err != nil {
		log.Printf("[mailer] Error delivering queued mail: %s\n", err.Error())
	}
}

func DownloadSDKFileFromS3() {
	filename := "admin-sdk-credentials.json"
	secretsPath := os.Getenv("SECRETS_DIR")
	sdkFilePath := path.Join(secretsPath, filename)
	_, err := os.Stat(sdkFilePath)
	if errors.Is(err, os.ErrNotExist) {
		log.Println("File not found. Downloading...")
		client := lib.AWSGetS3Client()
		if client == nil {
			return
		}
		secretsBucket := os.Getenv("S3_SECRETS_BUCKET")
		object, err := client.GetObject(context.Background(), &s3.GetObjectInput{
			Bucket: aws.String(secretsBucket),
			Key:    aws.String(filename),
		})
		if err != nil {
			log.Printf("[S3] Error retrieving object: %s\n", err.Error())
			return
		}
		defer object.Body.Close()
		file, err := os.Create(sdkFilePath)
		if err != nil {
			log.Printf("Could not create file %s: %s\n", filename, err.Error())
			return
		}
		defer file.Close()
		body, err := io.ReadAll(object.Body)
		if err != nil {
			log.Printf("Couldn't read object body from %s: %s\n", filename, err.Error())
			return
		}
		_, err = file.Write(body)
		if err != nil {
			log.Printf("Error writing to file: %s\n", err.Error())
			return
		}
		log.Println("File has been written")
	}
}
