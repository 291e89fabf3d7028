// Command bars trains a small deep belief network on the bars problem: every
// example is a square image with exactly one full row or column lit.
//
// While training, keys typed on stdin (followed by enter) are sent to the
// teacher; see monitor.Keys. With -http the weights of the focused
// connection are streamed at /weights and reports are pushed on /ws.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"

	"github.com/gorgonia/dbn"
	"github.com/gorgonia/dbn/dataset"
	"github.com/gorgonia/dbn/monitor"
	"github.com/gorgonia/dbn/monitor/gif"
	"github.com/gorgonia/dbn/monitor/mjpeg"
	"github.com/gorgonia/dbn/monitor/ws"
)

var (
	size    = flag.Int("size", 8, "width and height of the images")
	samples = flag.Int("samples", 400, "training examples")
	noise   = flag.Float64("noise", 0.02, "probability of flipping a pixel")
	epochs  = flag.Int("epochs", 20, "epochs per connection")
	addr    = flag.String("http", "", "serve the live monitor on this address, e.g. :8080")
	out     = flag.String("out", "bars", "prefix of the output files")
)

func makeBars(r *rand.Rand, n int) [][]float32 {
	retVal := make([][]float32, n)
	for k := range retVal {
		im := make([]float32, *size**size)
		line := r.Intn(*size)
		vertical := r.Intn(2) == 0
		for i := 0; i < *size; i++ {
			if vertical {
				im[i**size+line] = 1
			} else {
				im[line**size+i] = 1
			}
		}
		for i := range im {
			if r.Float64() < *noise {
				im[i] = 1 - im[i]
			}
		}
		retVal[k] = im
	}
	return retVal
}

func main() {
	flag.Parse()

	r := rand.New(rand.NewSource(1))
	data, err := dataset.FromExamples(makeBars(r, *samples), makeBars(r, *samples/4))
	if err != nil {
		log.Fatal(err)
	}

	conf := dbn.DefaultConf(*size**size, 2**size, *size)
	conf.Train.LearningRate = 0.05
	conf.Train.BatchSize = 20
	conf.Train.Epochs = *epochs
	conf.Train.SnapshotEvery = 5
	conf.InitScale = 0.05
	net, err := dbn.New(conf)
	if err != nil {
		log.Fatalf("%+v", err)
	}
	defer net.Close()
	fmt.Println(net)

	gifFile, err := os.Create(*out + ".gif")
	if err != nil {
		log.Fatal(err)
	}
	defer gifFile.Close()

	rec := monitor.New(gif.NewEncoder(gifFile, 4))
	keys := rec.Keys(net.Teacher())
	if *addr != "" {
		stream := mjpeg.New(rec, 8)
		live := ws.New(keys, 64, log.New(os.Stderr, "ws ", log.Ltime))
		rec.AddSink(stream)
		rec.AddSink(live)
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/weights", stream)
			mux.Handle("/ws", live)
			log.Printf("http://localhost%v/weights", *addr)
			log.Println(http.ListenAndServe(*addr, mux))
		}()
	}
	go func() {
		in := bufio.NewReader(os.Stdin)
		for {
			key, _, err := in.ReadRune()
			if err != nil {
				return
			}
			monitor.Press(keys, key)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	if err = net.Learn(ctx, data, rec); err != nil {
		log.Printf("training ended: %v", err)
	}
	fmt.Print(net.Teacher().Log())

	if err = rec.Flush(); err != nil {
		log.Println(err)
	}
	csvFile, err := os.Create(*out + ".csv")
	if err != nil {
		log.Fatal(err)
	}
	defer csvFile.Close()
	if err = rec.Dump(csvFile); err != nil {
		log.Println(err)
	}
	if err = ioutil.WriteFile(*out+".dot", []byte(net.ToDot()), 0644); err != nil {
		log.Println(err)
	}
	if err = net.Save(*out + ".model"); err != nil {
		log.Fatalf("%+v", err)
	}
	if s := rec.Log(); s != "" {
		fmt.Print(s)
	}
}
