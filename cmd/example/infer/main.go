// Command infer loads a network trained by the bars example and prints the
// top layer code of every horizontal and vertical bar.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/gorgonia/dbn"
	"github.com/gorgonia/dbn/dataset"
	"github.com/gorgonia/dbn/internal/linalg"
)

var (
	size  = flag.Int("size", 8, "width and height of the images")
	model = flag.String("model", "bars.model", "checkpoint written by the bars example")
)

func main() {
	flag.Parse()

	net, err := dbn.New(dbn.DefaultConf(*size**size, 2**size, *size))
	if err != nil {
		log.Fatal(err)
	}
	defer net.Close()
	if err = net.Load(*model); err != nil {
		log.Fatalf("%+v", err)
	}

	var ex [][]float32
	var names []string
	for vertical := 0; vertical < 2; vertical++ {
		for line := 0; line < *size; line++ {
			im := make([]float32, *size**size)
			for i := 0; i < *size; i++ {
				if vertical == 1 {
					im[i**size+line] = 1
				} else {
					im[line**size+i] = 1
				}
			}
			ex = append(ex, im)
			names = append(names, fmt.Sprintf("%c%d", "HV"[vertical], line))
		}
	}
	data, err := dataset.FromExamples(ex, nil)
	if err != nil {
		log.Fatal(err)
	}

	if err = net.InputShape().Apply(data.Train); err != nil {
		log.Fatalf("%+v", err)
	}

	top := len(net.Layers()) - 1
	code, err := net.Up(data.Train, top)
	if err != nil {
		log.Fatalf("%+v", err)
	}
	rows, cols := linalg.Dims(code)
	d := linalg.Data(code)
	for j := 0; j < cols; j++ {
		fmt.Printf("%s\t", names[j])
		for i := 0; i < rows; i++ {
			fmt.Printf("%.2f ", d[i*cols+j])
		}
		fmt.Println()
	}
}
